package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jsphweid/sightreader/output"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/term"
)

// Ports matching any of these are never picked by default.
var excludedPortPatterns = []string{"Midi Through", "Through Port", "Dummy"}

var (
	playConfig  engineConfig
	inPatterns  []string
	outPatterns []string
	serialDev   string
	serialBaud  int
	noControl   bool
)

func init() {
	flags := playCmd.Flags()
	playConfig.register(flags)
	flags.StringVar(&playConfig.listen, "listen", "", "also run the command server on this address")
	flags.StringSliceVar(&inPatterns, "in", nil, "input ports to listen to, by name substring (default: the last port)")
	flags.StringSliceVar(&outPatterns, "out", nil, "output ports to forward to, by name substring")
	flags.StringVar(&serialDev, "serial", "", "serial device to forward raw MIDI to")
	flags.IntVar(&serialBaud, "baud", output.SerialMidiBaud, "serial baud rate")
	flags.BoolVar(&noControl, "no-control", false, "disable keyboard seeking on the terminal")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play [score]",
	Short: "Follows a performance",
	Long: `Listens to MIDI inputs and follows the performer through the score.
Type a measure number and Enter to seek, q to quit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return play(args)
	},
}

func play(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drv, err := rtmididrv.New()
	if err != nil {
		return errors.Wrap(err, "rtmididrv")
	}
	defer drv.Close()

	e := newEngine(playConfig)
	defer e.close()

	if err := attachOutputs(e, drv); err != nil {
		return err
	}
	reporter := newPositionReporter(e.interp, 150*time.Millisecond)
	e.interp.Subscribe(reporter.Handle)

	if len(args) == 1 {
		if err := e.loadScoreFile(args[0]); err != nil {
			return err
		}
	} else {
		logger.Info("no score loaded, waiting for one from the command server")
	}

	stopInputs, err := attachInputs(e, drv)
	if err != nil {
		return err
	}
	defer stopInputs()

	if playConfig.listen != "" {
		srv := e.newServer(playConfig)
		go func() {
			if err := srv.ListenAndServe(ctx, playConfig.listen); err != nil {
				logger.Error("command server stopped", "err", err)
			}
		}()
	}

	if !noControl && term.IsTerminal(int(os.Stdin.Fd())) {
		return runControlSurface(ctx, e.interp, reporter, stop)
	}
	<-ctx.Done()
	return nil
}

func attachOutputs(e *engine, drv *rtmididrv.Driver) error {
	if len(outPatterns) > 0 {
		outs, err := drv.Outs()
		if err != nil {
			return errors.Wrap(err, "listing outputs")
		}
		selected := matchPorts(outs, outPatterns)
		if len(selected) == 0 {
			return errors.Errorf("no output port matches %s", strings.Join(outPatterns, ", "))
		}
		for _, out := range selected {
			dev, err := output.NewPortDevice(out)
			if err != nil {
				return err
			}
			e.projector.Add(dev)
		}
	}
	if serialDev != "" {
		dev, err := output.OpenSerial(serialDev, serialBaud)
		if err != nil {
			return err
		}
		e.projector.Add(dev)
	}
	if len(outPatterns) == 0 && serialDev == "" {
		logger.Info("no output device given, logging output")
		e.projector.Add(output.LogDevice{Logger: logger})
	}
	return nil
}

// attachInputs listens to every selected input. All of them feed the same
// interpreter, which serializes the events.
func attachInputs(e *engine, drv *rtmididrv.Driver) (func(), error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, errors.Wrap(err, "listing inputs")
	}
	var selected []drivers.In
	if len(inPatterns) > 0 {
		selected = matchPorts(ins, inPatterns)
	} else if last, ok := defaultPort(ins); ok {
		selected = []drivers.In{last}
	}
	if len(selected) == 0 {
		return nil, errors.New("no MIDI input port available")
	}

	var stops []func()
	stopAll := func() {
		for _, s := range stops {
			s()
		}
		for _, in := range selected {
			_ = in.Close()
		}
	}
	for _, in := range selected {
		name := in.String()
		if err := in.Open(); err != nil {
			stopAll()
			return nil, errors.Wrapf(err, "open %q", name)
		}
		stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
			if err := e.interp.InputMessage(msg); err != nil {
				logger.Debug("midi: event rejected", "device", name, "msg", msg.String(), "err", err)
			}
		}, midi.HandleError(func(listenErr error) {
			logger.Warn("midi: listener error, releasing held keys", "device", name, "err", listenErr)
			e.interp.ResetInput()
		}))
		if err != nil {
			stopAll()
			return nil, errors.Wrapf(err, "listen %q", name)
		}
		stops = append(stops, stop)
		logger.Info("midi: input connected", "device", name)
	}
	return stopAll, nil
}

type namedPort interface {
	String() string
}

func matchPorts[P namedPort](ports []P, patterns []string) []P {
	var res []P
	for _, p := range ports {
		for _, pat := range patterns {
			if containsCI(p.String(), pat) {
				res = append(res, p)
				break
			}
		}
	}
	return res
}

// defaultPort picks the last port that is not a virtual/system port.
func defaultPort[P namedPort](ports []P) (P, bool) {
	for i := len(ports) - 1; i >= 0; i-- {
		if len(matchPorts(ports[i:i+1], excludedPortPatterns)) == 0 {
			return ports[i], true
		}
	}
	var zero P
	return zero, false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
