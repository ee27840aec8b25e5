package internal

import (
	"io"

	"github.com/Carmen-Shannon/oxy-synth/config"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *config.Config
	stdout io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOutput sets the writer the JSON log is written to. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}
