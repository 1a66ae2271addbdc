package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamechat-server/internal/auth"
	"github.com/vovakirdan/gamechat-server/internal/chat"
	"github.com/vovakirdan/gamechat-server/internal/config"
	"github.com/vovakirdan/gamechat-server/internal/metrics"
	"github.com/vovakirdan/gamechat-server/internal/store"
	"github.com/vovakirdan/gamechat-server/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/gamechat-server/internal/transport/http"
)

// App wires together the channel directory, store and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	dir             *chat.Directory
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	ctx := context.Background()
	if err := st.SeedDefaults(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("seed channels: %w", err)
	}

	dir := chat.NewDirectory()
	if err := bootstrapDirectory(ctx, dir, st); err != nil {
		st.Close()
		return nil, fmt.Errorf("bootstrap directory: %w", err)
	}
	metrics.ChannelsGauge.Set(float64(dir.Len()))

	logger.Info().
		Str("db_path", cfg.DatabasePath).
		Int("channels", dir.Len()).
		Msg("channel directory bootstrapped")

	jwtCfg := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	}

	server := transporthttp.NewServer(dir, st, jwtCfg, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		dir:             dir,
		store:           st,
		log:             logger,
	}, nil
}

// bootstrapDirectory registers every persisted channel definition as a live
// channel.
func bootstrapDirectory(ctx context.Context, dir *chat.Directory, st store.Store) error {
	defs, err := st.ListChannels(ctx)
	if err != nil {
		return err
	}
	for _, def := range defs {
		opts := chat.Options{
			ReadLevel:  chat.ParseAccessLevel(def.ReadLevel),
			WriteLevel: chat.ParseAccessLevel(def.WriteLevel),
			AutoJoin:   def.AutoJoin,
		}
		if _, err := dir.Create(def.Name, def.Topic, opts); err != nil {
			return fmt.Errorf("register %q: %w", def.Name, err)
		}
	}
	return nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the store and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
