package notify

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// Chime plays the "order ready" sound.
type Chime interface {
	Play() error
}

type ChimeFunc func() error

func (f ChimeFunc) Play() error { return f() }

// BellChime rings the terminal bell.
type BellChime struct {
	W io.Writer
}

func (b BellChime) Play() error {
	_, err := io.WriteString(b.W, "\a")
	return err
}

// CommandChime runs an external player, e.g. `paplay ready.wav`.
type CommandChime struct {
	Name    string
	Args    []string
	Timeout time.Duration
}

func (c CommandChime) Play() error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if out, err := exec.CommandContext(ctx, c.Name, c.Args...).CombinedOutput(); err != nil {
		return fmt.Errorf("play %s: %w (%s)", c.Name, err, out)
	}
	return nil
}
