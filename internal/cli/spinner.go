package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// frameInterval paces the spinner animation. 80ms reads as continuous
// motion without burning cycles while a large layout computes.
const frameInterval = 80 * time.Millisecond

// spinnerFrames are the braille animation frames, in order.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates on stderr while the pipeline runs. Ctrl-C cancels the
// parent context, which clears the line before the process exits.
type Spinner struct {
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	halt    chan struct{} // closed by Stop
	idle    chan struct{} // closed when the animation goroutine returns
	mu      sync.Mutex
}

// newSpinnerWithContext creates a spinner tied to ctx. The spinner stops on
// its own when ctx is cancelled.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	spinCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		ctx:     spinCtx,
		cancel:  cancel,
		halt:    make(chan struct{}),
		idle:    make(chan struct{}),
	}
}

// Start begins the animation in a background goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.idle)
		ticker := time.NewTicker(frameInterval)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.halt:
				return
			case <-ticker.C:
				s.render(spinnerFrames[frame%len(spinnerFrames)])
			}
		}
	}()
}

// Stop halts the animation, waits for the goroutine, and clears the line.
// Safe to call more than once.
func (s *Spinner) Stop() {
	s.cancel()
	select {
	case <-s.halt:
	default:
		close(s.halt)
	}
	<-s.idle
	s.clearLine()
}

// StopWithError halts the animation and prints message as an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

func (s *Spinner) render(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(os.Stderr, "\r%s %s", styleIconSpinner.Render(frame), StyleDim.Render(s.message))
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
}
