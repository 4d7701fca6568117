package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v3"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/sig-0/fxconvert/favorites"
	"github.com/sig-0/fxconvert/history"
	"github.com/sig-0/fxconvert/kv/memory"
	"github.com/sig-0/fxconvert/storage"
	"github.com/sig-0/fxconvert/storage/types"

	"github.com/sig-0/fxconvert/server/config"
)

// RoutesFn is a callback that receives a router for registering routes
type RoutesFn func(router chi.Router)

// RateService resolves the latest rate snapshot
type RateService interface {
	Latest(context.Context) *types.RatesResponse
}

// HistoryStore records completed conversions
type HistoryStore interface {
	Append(context.Context, types.ConversionRecord)
	List(context.Context) []types.ConversionRecord
	Clear(context.Context)
}

// FavoritesStore keeps the favorite currency codes
type FavoritesStore interface {
	List() []types.Currency
	Add(context.Context, types.Currency)
	Remove(context.Context, types.Currency)
}

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type Server struct {
	logger *slog.Logger
	config *config.Config

	rates     RateService
	history   HistoryStore
	favorites FavoritesStore
	storage   storage.Storage // optional, backs the sources listing

	mux *chi.Mux
}

// New creates a new server instance.
// The history and favorites default to in-memory stores
func New(rates RateService, opts ...Option) (*Server, error) {
	s := &Server{
		logger: noopLogger,
		rates:  rates,
		config: config.DefaultConfig(),
		mux:    chi.NewMux(),
	}

	// Apply the options
	for _, opt := range opts {
		opt(s)
	}

	// Validate the configuration
	if err := config.ValidateConfig(s.config); err != nil {
		return nil, fmt.Errorf("invalid configuration, %w", err)
	}

	if s.history == nil {
		s.history = history.New(memory.NewStore(), history.WithLogger(s.logger))
	}

	if s.favorites == nil {
		s.favorites = favorites.New(context.Background(), nil, favorites.WithLogger(s.logger))
	}

	// Set up the CORS middleware
	if s.config.CORSConfig != nil {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins: s.config.CORSConfig.AllowedOrigins,
			AllowedMethods: s.config.CORSConfig.AllowedMethods,
			AllowedHeaders: s.config.CORSConfig.AllowedHeaders,
		})

		s.mux.Use(corsMiddleware.Handler)
	}

	s.mux.Use(httplog.RequestLogger(s.logger, &httplog.Options{
		Level:         slog.LevelInfo,
		Schema:        httplog.SchemaOTEL,
		RecoverPanics: true,
		Skip: func(r *http.Request, respStatus int) bool {
			return respStatus == 404 || respStatus == 405 || r.URL.Path == "/health"
		},
	}))

	// Register the health check handler
	s.mux.Get("/health", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	// Register the API docs
	s.mux.Get("/openapi.yaml", s.OpenAPI)
	s.mux.Get("/docs", s.Redoc)

	// Register the API handlers
	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/rates", s.Rates)
		r.Get("/convert", s.Convert)

		r.Get("/history", s.History)
		r.Delete("/history", s.ClearHistory)

		r.Get("/favorites", s.Favorites)
		r.Put("/favorites/{code}", s.AddFavorite)
		r.Delete("/favorites/{code}", s.RemoveFavorite)

		r.Get("/currencies", s.Currencies)
		r.Get("/sources", s.Sources)
	})

	return s, nil
}

// Routes calls fn with the server mux so callers can add endpoints
func (s *Server) Routes(fn RoutesFn) {
	if fn == nil {
		return
	}

	fn(s.mux)
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve serves the fxconvert service
func (s *Server) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.mux,
		ReadHeaderTimeout: 60 * time.Second,
	}

	group, gCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer s.logger.Info("server shut down")

		ln, err := net.Listen("tcp", server.Addr)
		if err != nil {
			return err
		}

		s.logger.Info(
			fmt.Sprintf(
				"server started at %s",
				ln.Addr().String(),
			),
		)

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	group.Go(func() error {
		<-gCtx.Done()

		s.logger.Info("server to be shutdown")

		wsCtx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()

		return server.Shutdown(wsCtx)
	})

	return group.Wait()
}
