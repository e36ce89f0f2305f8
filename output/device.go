package output

import (
	"log/slog"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"go.bug.st/serial"
)

type Device interface {
	Send(msg midi.Message) error
	Close() error
	String() string
}

// PortDevice writes to a MIDI output port.
type PortDevice struct {
	out drivers.Out
}

func NewPortDevice(out drivers.Out) (*PortDevice, error) {
	if !out.IsOpen() {
		if err := out.Open(); err != nil {
			return nil, errors.Wrapf(err, "open %q", out.String())
		}
	}
	return &PortDevice{out: out}, nil
}

func (d *PortDevice) Send(msg midi.Message) error {
	return d.out.Send(msg.Bytes())
}

func (d *PortDevice) Close() error {
	return d.out.Close()
}

func (d *PortDevice) String() string {
	return d.out.String()
}

// MIDI 1.0 DIN baud rate.
const SerialMidiBaud = 31250

// SerialDevice writes raw MIDI bytes to a serial port, for DIN adapters and
// microcontroller bridges.
type SerialDevice struct {
	name string
	port serial.Port
}

func OpenSerial(name string, baud int) (*SerialDevice, error) {
	if baud <= 0 {
		baud = SerialMidiBaud
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial %s at %d baud", name, baud)
	}
	return &SerialDevice{name: name, port: p}, nil
}

func (d *SerialDevice) Send(msg midi.Message) error {
	_, err := d.port.Write(msg.Bytes())
	return err
}

func (d *SerialDevice) Close() error {
	return d.port.Close()
}

func (d *SerialDevice) String() string {
	return "serial:" + d.name
}

// LogDevice only logs, for running without an output instrument.
type LogDevice struct {
	Logger *slog.Logger
}

func (d LogDevice) Send(msg midi.Message) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("output: message", "msg", msg.String())
	return nil
}

func (d LogDevice) Close() error { return nil }

func (d LogDevice) String() string { return "log" }
