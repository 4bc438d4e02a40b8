package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-waiter/coordinator"
	"github.com/yeremiapane/restaurant-waiter/floorclient"
	"github.com/yeremiapane/restaurant-waiter/models"
	"github.com/yeremiapane/restaurant-waiter/notify"
	"github.com/yeremiapane/restaurant-waiter/realtime"
	"github.com/yeremiapane/restaurant-waiter/roster"
	"github.com/yeremiapane/restaurant-waiter/ui"
	"github.com/yeremiapane/restaurant-waiter/utils"
)

var ErrRoleNotAllowed = errors.New("only waiters and admins can use the waiter client")

const redrawEvery = 500 * time.Millisecond

type appOptions struct {
	api      *floorclient.Client
	store    *notify.Store
	out      io.Writer
	interval time.Duration
	width    int
}

type app struct {
	opts    appOptions
	api     *floorclient.Client
	store   *notify.Store
	channel *realtime.Client
	session models.Session
	cache   *roster.Cache
	coord   *coordinator.Coordinator

	view      coordinator.View
	runCancel context.CancelFunc
	runDone   chan struct{}

	status    string
	drawnAt   [2]uint64
	loggedOut bool
}

func newApp(opts appOptions) *app {
	return &app{
		opts:  opts,
		api:   opts.api,
		store: opts.store,
	}
}

// login authenticates, rejects roles that cannot wait tables and connects
// the push channel for the new session.
func (a *app) login(ctx context.Context, email, password string) error {
	session, err := a.opts.api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %s", floorclient.Message(err))
	}
	if !session.CanWait() {
		return ErrRoleNotAllowed
	}

	a.stopRun()
	if a.coord != nil {
		a.coord.Close()
	}
	a.session = session
	a.api = a.opts.api.WithToken(session.Token)
	a.store.Clear()

	if a.channel == nil {
		a.channel = realtime.New(a.opts.api.BaseURL())
	}
	if err := a.channel.Connect(session); err != nil {
		return err
	}

	a.cache = roster.New(a.api, session.UserID)
	a.coord = coordinator.New(a.channel, a.store, a.cache, session,
		coordinator.WithInterval(a.opts.interval))
	utils.InfoLogger.WithField("user_id", session.UserID).Info("logged in")
	return nil
}

// switchView ends the current coordinator run and starts one for view.
func (a *app) switchView(view coordinator.View) {
	a.stopRun()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.view, a.runCancel, a.runDone = view, cancel, done

	go func() {
		defer close(done)
		if err := a.coord.Run(ctx, view); err != nil {
			utils.ErrorLogger.WithError(err).Error("coordinator stopped")
		}
	}()
}

func (a *app) stopRun() {
	if a.runCancel == nil {
		return
	}
	a.runCancel()
	<-a.runDone
	a.runCancel, a.runDone = nil, nil
}

func (a *app) loop(ctx context.Context, view coordinator.View, input <-chan string) error {
	a.switchView(view)
	a.draw(true)

	ticker := time.NewTicker(redrawEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-input:
			if !ok {
				return nil
			}
			quit := a.handle(ctx, line)
			a.draw(true)
			if quit {
				return nil
			}
		case <-ticker.C:
			a.draw(false)
		}
	}
}

// handle runs one command line and reports whether the client should exit.
func (a *app) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	a.status = ""

	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	cmd := strings.ToLower(fields[0])
	switch cmd {
	case "claim", "release":
		t, ok := a.cache.FindByNumber(arg)
		if !ok {
			a.status = fmt.Sprintf("Unknown table %q", arg)
			return false
		}
		actx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if cmd == "claim" {
			if a.coord.Claim(actx, t.ID) == nil {
				a.status = "Claimed table " + t.Number
			}
		} else if a.coord.Release(actx, t.ID) == nil {
			a.status = "Released table " + t.Number
		}
	case "dismiss":
		if !a.dismiss(arg) {
			a.status = fmt.Sprintf("No notification %q", arg)
		}
	case "view":
		view, err := coordinator.ParseView(arg)
		if err != nil {
			a.status = err.Error()
			return false
		}
		a.switchView(view)
	case "refresh":
		if err := a.cache.Refresh(ctx); err != nil {
			a.status = "Refresh failed: " + floorclient.Message(err)
		}
	case "logout":
		a.logout(ctx)
		return true
	case "quit", "exit", "q":
		return true
	default:
		a.status = fmt.Sprintf("Unknown command %q", fields[0])
	}
	return false
}

// dismiss removes the notification whose id starts with prefix. An
// ambiguous prefix removes nothing.
func (a *app) dismiss(prefix string) bool {
	if prefix == "" {
		return false
	}
	var match string
	for _, n := range a.store.List() {
		if strings.HasPrefix(n.ID, prefix) {
			if match != "" {
				return false
			}
			match = n.ID
		}
	}
	return match != "" && a.store.Remove(match)
}

func (a *app) logout(ctx context.Context) {
	a.stopRun()
	if err := a.api.Logout(ctx); err != nil {
		utils.ErrorLogger.WithError(err).Warn("logout request failed")
	}
	a.teardown()
	a.loggedOut = true
}

func (a *app) teardown() {
	if a.coord != nil {
		a.coord.Close()
	}
	if a.channel != nil {
		a.channel.Close()
	}
	a.store.Clear()
	a.session = models.Session{}
}

func (a *app) shutdown() {
	a.stopRun()
	if !a.loggedOut {
		a.teardown()
	}
}

// draw repaints when forced or when the roster or the notifications changed.
func (a *app) draw(force bool) {
	if a.opts.out == nil || a.cache == nil {
		return
	}
	current := [2]uint64{a.cache.Version(), a.store.Version()}
	if !force && current == a.drawnAt {
		return
	}
	a.drawnAt = current

	tables := a.cache.All()
	if a.view == coordinator.ViewMine {
		tables = a.cache.Mine()
	}
	r := ui.NewRenderer(ui.DefaultTheme(), a.cache.UserID(), a.opts.width)
	fmt.Fprint(a.opts.out, "\033[H\033[2J")
	fmt.Fprintln(a.opts.out, r.Screen(a.session, string(a.view), tables, a.store.List(), a.status))
}
