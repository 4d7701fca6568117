package favorites

import "log/slog"

type Option func(s *Store)

// WithLogger specifies the logger for the favorites store
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}
