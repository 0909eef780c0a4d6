//go:build !linux

package statusled

import "fmt"

func openLED(chip string, line int) (driver, error) {
	return nil, fmt.Errorf("statusled: gpio is only supported on linux")
}
