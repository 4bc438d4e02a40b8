// Command waiter is the terminal client for waiters: it shows the floor,
// claims and releases tables and rings when the kitchen has an order ready.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/yeremiapane/restaurant-waiter/config"
	"github.com/yeremiapane/restaurant-waiter/coordinator"
	"github.com/yeremiapane/restaurant-waiter/floorclient"
	"github.com/yeremiapane/restaurant-waiter/notify"
	"github.com/yeremiapane/restaurant-waiter/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	utils.InitLogger()

	cfg, err := config.LoadWaiter()
	if err != nil {
		return err
	}

	var logFile string
	flagSet := pflag.NewFlagSet("waiter", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "floor server base URL")
	flagSet.StringVarP(&cfg.Email, "email", "e", cfg.Email, "login email")
	flagSet.StringVarP(&cfg.Password, "password", "p", cfg.Password, "login password (prompted when empty)")
	flagSet.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "roster poll interval")
	flagSet.StringVar(&cfg.View, "view", cfg.View, "initial view: floor or mine")
	flagSet.StringVar(&cfg.SoundCommand, "sound-command", cfg.SoundCommand, "command played for order-ready notifications (default: terminal bell)")
	flagSet.StringVar(&logFile, "log-file", "", "write logs to this file (discarded by default)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	view, err := coordinator.ParseView(cfg.View)
	if err != nil {
		return err
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		utils.SetOutput(f)
	} else {
		utils.SetOutput(io.Discard)
	}

	input := bufio.NewScanner(os.Stdin)
	if cfg.Email == "" {
		cfg.Email = prompt(input, "Email: ")
	}
	if cfg.Password == "" {
		cfg.Password = prompt(input, "Password: ")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var chime notify.Chime = notify.BellChime{W: os.Stdout}
	if cfg.SoundCommand != "" {
		fields := strings.Fields(cfg.SoundCommand)
		chime = notify.CommandChime{Name: fields[0], Args: fields[1:]}
	}

	a := newApp(appOptions{
		api:      floorclient.New(cfg.ServerURL),
		store:    notify.NewStore(notify.WithChime(chime)),
		out:      os.Stdout,
		interval: cfg.PollInterval,
	})
	if err := a.login(ctx, cfg.Email, cfg.Password); err != nil {
		return err
	}
	defer a.shutdown()

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	return a.loop(loopCtx, view, lines(loopCtx, input))
}

func prompt(input *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !input.Scan() {
		return ""
	}
	return strings.TrimSpace(input.Text())
}

// lines feeds stdin to the event loop. The channel closes on EOF or once
// ctx is done; lines read after that are dropped.
func lines(ctx context.Context, input *bufio.Scanner) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for input.Scan() {
			if ctx.Err() != nil {
				return
			}
			select {
			case ch <- input.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `waiter: terminal floor client for restaurant waiters.

Logs in to the floor server, shows the table map and your tables, and
notifies you when the kitchen marks an item of your order ready.

Usage:
  waiter [flags]

Commands while running:
  claim N       claim table N
  release N     release table N
  dismiss ID    dismiss a notification (id prefix is enough)
  view floor    show every table
  view mine     show your tables
  refresh       reload the roster now
  logout        log out and exit
  quit          exit

Flags:
`)
	flagSet.PrintDefaults()
}
