//go:build !linux

package uart

import (
	"fmt"
	"io"
)

func openSerial(path string, baud int) (io.WriteCloser, error) {
	return nil, fmt.Errorf("serial output is only supported on linux")
}
