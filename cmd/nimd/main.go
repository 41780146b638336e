package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ssk4988/nim/internal/app"
	"github.com/ssk4988/nim/internal/config"
	"github.com/ssk4988/nim/internal/domain"
	"github.com/ssk4988/nim/internal/store"
	"github.com/ssk4988/nim/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open store")
	}
	defer st.Close()

	var genOpts []domain.GeneratorOption
	if cfg.RandomFirst {
		genOpts = append(genOpts, domain.WithRandomFirstMover())
	}
	svc := app.NewService(
		app.WithGenerator(domain.DefaultGenerator(genOpts...)),
		app.WithStore(st),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go prune(ctx, svc, cfg.IdleTimeout)

	srv := &http.Server{Addr: cfg.Addr, Handler: web.NewServer(svc, web.WithHeartbeat(cfg.Heartbeat))}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	log.Info().Str("addr", cfg.Addr).Str("store", cfg.Store).Msg("starting nimd")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("stopped")
}

func openStore(cfg config.Config) (store.Store, error) {
	if cfg.Store == config.StoreMemory {
		return store.NewMemoryStore(), nil
	}
	return store.Open(cfg.DBPath)
}

// prune drops idle games until ctx ends.
func prune(ctx context.Context, svc *app.Service, idle time.Duration) {
	t := time.NewTicker(idle / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			svc.Prune(now.Add(-idle))
		}
	}
}
