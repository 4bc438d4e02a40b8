package main

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinesUntilEOF(t *testing.T) {
	ch := lines(context.Background(), bufio.NewScanner(strings.NewReader("claim 3\nview mine\n")))

	var got []string
	for line := range ch {
		got = append(got, line)
	}
	assert.Equal(t, []string{"claim 3", "view mine"}, got)
}

func TestLinesStopsWhenContextDone(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := lines(ctx, bufio.NewScanner(pr))

	_, err := pw.Write([]byte("refresh\n"))
	require.NoError(t, err)
	assert.Equal(t, "refresh", <-ch)

	cancel()
	// the reader is still open; the line read after cancel is not delivered
	_, err = pw.Write([]byte("quit\n"))
	require.NoError(t, err)

	select {
	case line, ok := <-ch:
		assert.False(t, ok, "unexpected line %q", line)
	case <-time.After(waitFor):
		t.Fatal("lines did not stop after cancel")
	}
}
