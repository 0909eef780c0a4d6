//go:build linux

package statusled

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// openLED requests the line as a digital output via the Linux GPIO
// character device.
func openLED(chip string, line int) (driver, error) {
	if line < 0 {
		return nil, fmt.Errorf("statusled: invalid gpio line %d", line)
	}

	l, err := gpiocdev.RequestLine(chip, line, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("vps-onboard-led"))
	if err != nil {
		return nil, fmt.Errorf("statusled: request %s line %d: %w", chip, line, err)
	}
	return &gpiodLED{line: l}, nil
}

type gpiodLED struct {
	line *gpiocdev.Line
}

func (g *gpiodLED) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	return g.line.SetValue(v)
}

func (g *gpiodLED) Close() error {
	// Graceful shutdown: LED off.
	_ = g.line.SetValue(0)
	err := g.line.Close()
	g.line = nil
	return err
}
