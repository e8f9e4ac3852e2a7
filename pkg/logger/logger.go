package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Service      string `split_words:"true" default:"helia-core"`
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
}

var DefaultConfig = &Config{
	Service:      "helia-core",
	Debug:        false,
	PrettyFormat: false,
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

// build assembles the logger against an explicit writer so the field set
// can be asserted in tests.
func build(conf *Config, w io.Writer) zerolog.Logger {
	if conf.PrettyFormat {
		cw := zerolog.NewConsoleWriter()
		cw.Out = w
		w = cw
	}

	logger := zerolog.New(w).With().Timestamp().Logger()

	if conf.Service != "" {
		logger = logger.With().Str("service", conf.Service).Logger()
	}

	if conf.Debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	return logger.With().Caller().Stack().Logger()
}

func Init(opts ...Config) {
	log.Logger = build(safe(opts...), os.Stdout)
}
