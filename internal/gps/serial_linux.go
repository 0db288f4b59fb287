//go:build linux

package gps

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
	460800: unix.B460800,
}

// openSerial opens a tty in raw 8N1 mode at baud.
func openSerial(path string, baud int) (io.ReadCloser, error) {
	spd, ok := baudRates[baud]
	if !ok {
		return nil, fmt.Errorf("unsupported baud %d", baud)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}
	if err := makeRaw(fd, spd); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("configure %s: %w", path, err)
	}
	f := os.NewFile(uintptr(fd), path)
	if f == nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("os.NewFile failed")
	}
	return f, nil
}

func makeRaw(fd int, spd uint32) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CLOCAL | unix.CREAD | spd
	t.Ispeed = spd
	t.Ospeed = spd
	// Block for at least one byte, 1 s inter-byte timeout.
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 10
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

// autoDetectDevice returns the first USB CDC/serial adapter or Pi UART.
func autoDetectDevice() string {
	candidates := []string{}
	for _, prefix := range []string{"/dev/ttyACM", "/dev/ttyUSB"} {
		for i := 0; i < 10; i++ {
			candidates = append(candidates, fmt.Sprintf("%s%d", prefix, i))
		}
	}
	candidates = append(candidates, "/dev/serial0", "/dev/ttyAMA0")
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
