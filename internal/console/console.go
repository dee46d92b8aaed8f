// Package console is the headless view: it writes the dashboard to a
// terminal stream instead of drawing it.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"obdboard/internal/models"
	"obdboard/internal/poller"
)

// Console prints status changes and one line per completed tick.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	status  string
	running bool
}

var (
	_ poller.View = (*Console)(nil)
	_ poller.Sink = (*Console)(nil)
)

func New(out io.Writer) *Console {
	return &Console{out: out}
}

// SetCard is a no-op; cards are printed together by Publish.
func (c *Console) SetCard(poller.Key, string) {}

func (c *Console) SetRunning(running bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = running
}

func (c *Console) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status == c.status {
		return
	}
	c.status = status
	fmt.Fprintf(c.out, "Status: %s\n", status)
}

func (c *Console) SetTroubleCodes(codes []models.DTCEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(codes) == 0 {
		fmt.Fprintln(c.out, "No trouble codes.")
		return
	}
	fmt.Fprintln(c.out, "Trouble codes:")
	for _, e := range codes {
		fmt.Fprintf(c.out, "- %s: %s\n", e.Code, e.Description)
	}
}

// Publish prints the tick as a single line.
func (c *Console) Publish(_ context.Context, readings []models.Reading) error {
	parts := make([]string, 0, len(readings))
	for _, r := range readings {
		parts = append(parts, r.Title+": "+r.Text)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, strings.Join(parts, " | "))
	return err
}

func (c *Console) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
