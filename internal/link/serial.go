package link

import (
	"fmt"
	"os"
	"time"

	"github.com/goburrow/serial"
)

// readTimeout bounds a single blocking port read so the RX loop can notice
// shutdown between quiet periods.
const readTimeout = time.Second

// AutoPort scans the usual USB-serial device nodes and returns the first one
// present. Radio modems enumerate as ttyUSB* or ttyACM*.
func AutoPort() (string, bool) {
	for _, prefix := range []string{"/dev/ttyUSB", "/dev/ttyACM"} {
		for i := 0; i < 10; i++ {
			p := fmt.Sprintf("%s%d", prefix, i)
			if _, err := os.Stat(p); err == nil {
				return p, true
			}
		}
	}
	return "", false
}

// OpenPort opens the serial device, resolving "auto" by scanning for one.
// Failure here is fatal to the caller: there is no command path without the
// radio.
func OpenPort(device string, baud int) (serial.Port, string, error) {
	if device == "auto" || device == "" {
		p, ok := AutoPort()
		if !ok {
			return nil, "", fmt.Errorf("link: no serial port found")
		}
		device = p
	}
	port, err := serial.Open(&serial.Config{
		Address:  device,
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  readTimeout,
	})
	if err != nil {
		return nil, "", fmt.Errorf("link: open %s: %w", device, err)
	}
	return port, device, nil
}
