// Package progress provides a minimal terminal spinner for long-running
// CLI operations such as specialization.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

type Spinner struct {
	message string
	parts   []string

	w      io.Writer
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func NewSpinner(w io.Writer, message string) *Spinner {
	s := &Spinner{
		message: message,
		parts:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		w:       w,
		ticker:  time.NewTicker(100 * time.Millisecond),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Spinner) run() {
	i := 0
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			fmt.Fprintf(s.w, "\r%s %s ", s.parts[i%len(s.parts)], s.message)
			i++
		}
	}
}

// Stop ends the spinner and clears its line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.done)
		fmt.Fprintf(s.w, "\r\033[K")
	})
}
