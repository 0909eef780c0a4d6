// Package statusled drives a GPIO LED that tells the field operator what
// the positioning system is doing without a screen: solid on a visual fix,
// blinking while coasting on prediction or dead reckoning, off with no fix.
package statusled

import (
	"context"
	"log"
	"sync"
	"time"
)

// Mode is the requested LED pattern.
type Mode int

const (
	Off Mode = iota
	Blink
	Solid
)

// driver is the hardware side; the linux gpiod implementation satisfies
// it, other platforms get an error stub.
type driver interface {
	Set(on bool) error
	Close() error
}

// Service owns the LED line and the blink timer.
type Service struct {
	drv driver

	mu   sync.Mutex
	mode Mode

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens the LED line on the given chip. An error leaves the caller
// free to continue without an LED.
func New(chip string, line int) (*Service, error) {
	drv, err := openLED(chip, line)
	if err != nil {
		return nil, err
	}
	return &Service{drv: drv}, nil
}

// Start runs the blink loop until ctx is done.
func (s *Service) Start(ctx context.Context) {
	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		on := false
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-childCtx.Done():
				return
			case <-ticker.C:
			}

			s.mu.Lock()
			mode := s.mode
			s.mu.Unlock()

			var want bool
			switch mode {
			case Solid:
				want = true
			case Blink:
				want = !on
			default:
				want = false
			}
			if want != on {
				if err := s.drv.Set(want); err != nil {
					log.Printf("status led set failed: %v", err)
				}
				on = want
			}
		}
	}()
}

// SetMode selects the pattern; it takes effect on the next tick.
func (s *Service) SetMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// Close stops the blink loop and releases the line with the LED off.
func (s *Service) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	_ = s.drv.Close()
}
