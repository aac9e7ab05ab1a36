package naf

import "go.uber.org/zap"

// Option adjusts how an archive is opened.
type Option func(*archiveOptions) error

type archiveOptions struct {
	logger *zap.Logger
}

func (o *archiveOptions) setDefault() {
	*o = archiveOptions{
		logger: zap.NewNop(),
	}
}

// WithLogger routes scan diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *archiveOptions) error { o.logger = l; return nil }
}
