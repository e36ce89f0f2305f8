// Package output turns interpreted piano events into MIDI messages and
// broadcasts them to every registered device.
package output

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jsphweid/sightreader/constants"
	"github.com/jsphweid/sightreader/model"
	"gitlab.com/gomidi/midi/v2"
)

type Config struct {
	Channel uint8
	// Velocity sent with note-offs. Some instruments want 0.
	ReleaseVelocity uint8
	// Send 127-position for pedals, for controllers with inverted travel.
	InvertPedal bool
	Controllers map[model.PedalKind]uint8
	// Per-device buffer. Messages for a device whose buffer is full are
	// dropped.
	QueueSize int
	// How long Close waits for devices to drain before closing them anyway.
	CloseTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ReleaseVelocity: constants.ReleaseVelocity,
		Controllers: map[model.PedalKind]uint8{
			model.Sustain:   constants.SustainCC,
			model.Sostenuto: constants.SostenutoCC,
			model.UnaCorda:  constants.UnaCordaCC,
		},
		QueueSize:    256,
		CloseTimeout: 2 * time.Second,
	}
}

type sink struct {
	dev     Device
	queue   chan midi.Message
	dropped atomic.Uint64
}

// Projector fans each event out to all devices. Each device is written from
// its own goroutine, in the order events were handled.
type Projector struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	sinks   []*sink
	closed  bool
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

func NewProjector(cfg Config, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Controllers == nil {
		cfg.Controllers = DefaultConfig().Controllers
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = DefaultConfig().CloseTimeout
	}
	cfg.Channel &= 0x0f
	cfg.ReleaseVelocity &= 0x7f
	return &Projector{cfg: cfg, logger: logger}
}

func (p *Projector) Add(dev Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	s := &sink{dev: dev, queue: make(chan midi.Message, p.cfg.QueueSize)}
	p.sinks = append(p.sinks, s)
	p.wg.Add(1)
	go p.drain(s)
	p.logger.Info("output: device added", "device", dev.String())
}

func (p *Projector) drain(s *sink) {
	defer p.wg.Done()
	for msg := range s.queue {
		if err := s.dev.Send(msg); err != nil {
			p.logger.Warn("output: write failed", "device", s.dev.String(), "msg", msg.String(), "err", err)
		}
	}
}

// Project maps one event to the message every device receives.
func (p *Projector) Project(ev model.PianoEvent) midi.Message {
	switch ev.Kind {
	case model.NotePress:
		return midi.NoteOn(p.cfg.Channel, ev.Pitch, ev.Velocity)
	case model.NoteRelease:
		return midi.NoteOffVelocity(p.cfg.Channel, ev.Pitch, p.cfg.ReleaseVelocity)
	case model.PedalChange:
		cc, ok := p.cfg.Controllers[ev.Pedal]
		if !ok {
			cc = constants.SustainCC
		}
		pos := ev.Position
		if p.cfg.InvertPedal {
			pos = model.MaxMidiValue - pos
		}
		return midi.ControlChange(p.cfg.Channel, cc, pos)
	}
	return nil
}

// Handle is an interpreter subscriber. It never waits on a device: a
// message that does not fit in a device's queue is dropped for that device.
func (p *Projector) Handle(ev model.PianoEvent) {
	msg := p.Project(ev)
	if msg == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for _, s := range p.sinks {
		select {
		case s.queue <- msg:
		default:
			p.dropped.Add(1)
			if s.dropped.Add(1) == 1 {
				p.logger.Warn("output: device not keeping up, dropping messages", "device", s.dev.String(), "msg", msg.String())
			}
		}
	}
}

// Dropped returns how many messages were dropped across all devices.
func (p *Projector) Dropped() uint64 {
	return p.dropped.Load()
}

// Close flushes every queue and closes the devices. Devices still writing
// after CloseTimeout are closed without waiting further.
func (p *Projector) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, s := range p.sinks {
		close(s.queue)
	}
	sinks := p.sinks
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(p.cfg.CloseTimeout):
		p.logger.Warn("output: devices did not drain in time, closing anyway", "timeout", p.cfg.CloseTimeout)
	}

	for _, s := range sinks {
		if n := s.dropped.Load(); n > 0 {
			p.logger.Warn("output: messages dropped", "device", s.dev.String(), "count", n)
		}
		if err := s.dev.Close(); err != nil {
			p.logger.Warn("output: close failed", "device", s.dev.String(), "err", err)
		}
	}
}
