package server

import (
	"log/slog"

	"github.com/sig-0/fxconvert/server/config"
	"github.com/sig-0/fxconvert/storage"
)

type Option func(s *Server)

// WithLogger specifies the logger for the server
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithConfig specifies the config for the server
func WithConfig(c *config.Config) Option {
	return func(s *Server) {
		s.config = c
	}
}

// WithHistory specifies the conversion history store
func WithHistory(h HistoryStore) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithFavorites specifies the favorites store
func WithFavorites(f FavoritesStore) Option {
	return func(s *Server) {
		s.favorites = f
	}
}

// WithStorage specifies the snapshot storage, used for listing sources
func WithStorage(st storage.Storage) Option {
	return func(s *Server) {
		s.storage = st
	}
}
