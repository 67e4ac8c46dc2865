package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"safe-route-service/internal/adapters/scoring"
	"safe-route-service/internal/api"
	"safe-route-service/internal/services"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the routing HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L()

		conn, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		geocoder, err := newGeocoder(cfg, conn, log)
		if err != nil {
			return err
		}
		dirs, err := newDirections(cfg, log)
		if err != nil {
			return err
		}

		rc := scoring.OpenRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if rc != nil {
			defer rc.Close()
			if err := rc.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable, score cache will miss", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
		}

		resolver, err := resolverConfig(cfg)
		if err != nil {
			return err
		}

		crime := newCrimeProvider(cfg, conn)
		store := services.NewSessionStore(sessionFactory(
			services.Deps{
				Geocoder:   geocoder,
				Directions: dirs,
				Scorer:     newScorer(cfg, rc, log),
				Crime:      crime,
			},
			services.Options{
				Resolver:       resolver,
				DefaultDataset: cfg.Crime.DefaultDataset,
				Logger:         log,
			},
		), log)
		defer store.Close()
		go store.RunJanitor(ctx, time.Duration(cfg.Server.SessionIdleMinutes)*time.Minute, services.DefaultSweepInterval)

		router := api.NewRouter(store, crime, api.RouterConfig{
			CORSOrigins:    cfg.Server.CORSOrigins,
			RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
			Logger:         log,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		// Timeouts are tuned for cold-cache routing (directions plus per-route scoring).
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		log.Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
