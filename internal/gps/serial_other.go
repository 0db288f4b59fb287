//go:build !linux

package gps

import (
	"io"

	"go.bug.st/serial"
)

func openSerial(path string, baud int) (io.ReadCloser, error) {
	return serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

func autoDetectDevice() string {
	ports, err := serial.GetPortsList()
	if err != nil || len(ports) == 0 {
		return ""
	}
	return ports[0]
}
