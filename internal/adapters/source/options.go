package source

import "github.com/okian/empathy/pkg/logger"

// Option configures a Source.
type Option func(*settings)

type settings struct {
	log   logger.Logger
	table string
}

// WithLogger sets the logger used by the source.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTable names the SQLite table to read.
func WithTable(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.table = name
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{table: DefaultTable}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("source")
	}
	return s
}
