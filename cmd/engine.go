package cmd

import (
	"github.com/jsphweid/sightreader/constants"
	"github.com/jsphweid/sightreader/db"
	"github.com/jsphweid/sightreader/diagnostics"
	"github.com/jsphweid/sightreader/file"
	"github.com/jsphweid/sightreader/interpreter"
	"github.com/jsphweid/sightreader/model"
	"github.com/jsphweid/sightreader/normalizer"
	"github.com/jsphweid/sightreader/output"
	"github.com/jsphweid/sightreader/score"
	"github.com/jsphweid/sightreader/server"
	"github.com/spf13/pflag"
)

// engineConfig holds the flags shared by play and serve.
type engineConfig struct {
	mediaDir         string
	listen           string
	dynamoEndpoint   string
	window           int
	fallbackVelocity uint8
	channel          uint8
	releaseVelocity  uint8
	invertPedal      bool
}

func (c *engineConfig) register(flags *pflag.FlagSet) {
	flags.StringVar(&c.mediaDir, "media", constants.GetMediaDir(), "directory of scores offered by the command server (MEDIA_PATH)")
	flags.StringVar(&c.dynamoEndpoint, "dynamodb", constants.GetDynamoEndpoint(), "DynamoDB endpoint for score metadata, empty to disable (DYNAMODB_ENDPOINT)")
	flags.IntVar(&c.window, "window", constants.VelocityWindowSize, "number of recent press velocities averaged for simulated presses")
	flags.Uint8Var(&c.fallbackVelocity, "fallback-velocity", constants.FallbackVelocity, "simulated press velocity before any press was seen")
	flags.Uint8Var(&c.channel, "channel", 0, "output MIDI channel (0-15)")
	flags.Uint8Var(&c.releaseVelocity, "release-velocity", constants.ReleaseVelocity, "note-off velocity sent to outputs")
	flags.BoolVar(&c.invertPedal, "invert-pedal", false, "invert pedal travel on output")
}

// engine is everything one playing session owns: the interpreter and the
// output fan-out. Inputs are attached by the command.
type engine struct {
	interp    *interpreter.Interpreter
	projector *output.Projector
	counter   *diagnostics.Counter
}

func newEngine(cfg engineConfig) *engine {
	counter := diagnostics.NewCounter(logger)
	interp := interpreter.New(
		interpreter.WithLogger(logger),
		interpreter.WithDiagnostics(counter),
		interpreter.WithNormalizer(normalizer.Config{
			WindowSize:       cfg.window,
			FallbackVelocity: cfg.fallbackVelocity,
		}),
	)

	outCfg := output.DefaultConfig()
	outCfg.Channel = cfg.channel
	outCfg.ReleaseVelocity = cfg.releaseVelocity
	outCfg.InvertPedal = cfg.invertPedal
	projector := output.NewProjector(outCfg, logger)
	interp.Subscribe(projector.Handle)

	return &engine{interp: interp, projector: projector, counter: counter}
}

func (e *engine) loadScoreFile(path string) error {
	s, err := score.LoadFile(path)
	if err != nil {
		return err
	}
	return e.interp.LoadScore(s, path)
}

func (e *engine) close() {
	e.projector.Close()
	c := e.counter.Counts()
	logger.Info("session finished",
		"presses", c.Presses,
		"releases", c.Releases,
		"simulated", c.Simulated,
		"matched", c.Matched,
		"pass_through", c.PassThrough,
		"rejected", c.Rejected,
	)
}

func (e *engine) newServer(cfg engineConfig) *server.Server {
	lib, err := file.LoadScoreLibrary(cfg.mediaDir)
	if err != nil {
		logger.Warn("score library unavailable", "dir", cfg.mediaDir, "err", err)
		lib = make(model.ScoreLibrary)
	}

	opts := server.Options{Library: lib, Logger: logger}
	if cfg.dynamoEndpoint != "" {
		store, err := db.OpenDynamoStore(cfg.dynamoEndpoint, constants.MetadataTable)
		if err != nil {
			logger.Warn("score metadata unavailable", "endpoint", cfg.dynamoEndpoint, "err", err)
		} else {
			opts.Metadata = store
		}
	}
	return server.New(e.interp, opts)
}
