package history

import "log/slog"

type Option func(s *Store)

// WithLogger specifies the logger for the history store
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}
