package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axellelanca/linkstats/cmd"
	"github.com/axellelanca/linkstats/internal/api"
	"github.com/axellelanca/linkstats/internal/auth"
	"github.com/axellelanca/linkstats/internal/cache"
	"github.com/axellelanca/linkstats/internal/config"
	"github.com/axellelanca/linkstats/internal/database"
	"github.com/axellelanca/linkstats/internal/logger"
	"github.com/axellelanca/linkstats/internal/models"
	"github.com/axellelanca/linkstats/internal/monitor"
	"github.com/axellelanca/linkstats/internal/repository"
	"github.com/axellelanca/linkstats/internal/services"
	"github.com/axellelanca/linkstats/internal/workers"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// RunServerCmd représente la commande 'run-server' de Cobra.
// C'est le point d'entrée pour lancer le serveur de l'application.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Lance le serveur API de raccourcissement d'URLs et les processus de fond.",
	Long: `Cette commande initialise la base de données, configure les APIs,
démarre l'enregistrement asynchrone des visites et le moniteur d'URLs,
puis lance le serveur HTTP.`,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := cmd.Config()
		if err != nil {
			return err
		}
		return run(*cfg)
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}

func run(cfg config.Config) error {
	log := logger.With("component", "server")

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			log.Warn("sentry disabled", "err", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Base de données et migration automatique des modèles
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statsCache, err := cache.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer statsCache.Close()

	linkRepo := repository.NewLinkRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	log.Info("repositories initialised", "driver", cfg.Database.Driver, "cache", cfg.Cache.Driver)

	linkService := services.NewLinkService(linkRepo, services.NewRandomHashGenerator(services.DefaultHashLength), statsCache)
	statsService := services.NewStatsService(linkRepo, visitRepo, statsCache)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := api.NewRouter(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	sink, stopRecording, err := startVisitRecording(cfg, visitRepo)
	if err != nil {
		return err
	}

	// Les tâches de fond ont leur propre contexte, annulé après l'arrêt du serveur HTTP.
	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()
	var background errgroup.Group

	if cfg.Monitor.Enabled {
		interval := time.Duration(cfg.Monitor.IntervalMinutes) * time.Minute
		urlMonitor := monitor.NewUrlMonitor(linkRepo, interval)
		background.Go(func() error {
			urlMonitor.Run(bgCtx)
			return nil
		})
	}

	if cfg.Auth.JWTSecret == "" {
		log.Warn("auth.jwt_secret is empty, every /link request will be rejected")
	}

	api.SetupRoutes(router, linkService, statsService, sink, auth.NewMiddleware(cfg.Auth.JWTSecret))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "addr", srv.Addr, "base_url", cfg.Server.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server failed", "err", err)
			runErr = fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	timeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "err", err)
	}

	// Plus aucune requête : on enregistre les dernières visites puis on arrête le reste.
	var shutdown errgroup.Group
	shutdown.Go(func() error {
		stopRecording()
		return nil
	})
	shutdown.Go(func() error {
		cancelBackground()
		return background.Wait()
	})
	if err := shutdown.Wait(); err != nil {
		log.Error("background task failed", "err", err)
	}

	log.Info("server stopped")
	return runErr
}

// startVisitRecording wires the sink used by the redirect handler. With a
// broker URL, events go through AMQP and a consumer stores them; otherwise an
// in-process channel feeds the worker pool. stop must be called once the HTTP
// server no longer accepts requests; it returns after the last visit is stored.
func startVisitRecording(cfg config.Config, visitRepo repository.VisitRepository) (sink workers.VisitSink, stop func(), err error) {
	log := logger.With("component", "server")

	if cfg.Analytics.BrokerURL != "" {
		broker, err := workers.DialBroker(cfg.Analytics.BrokerURL, cfg.Analytics.QueueName)
		if err != nil {
			return nil, nil, err
		}
		deliveries, err := broker.Deliveries()
		if err != nil {
			broker.Close()
			return nil, nil, err
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			workers.ConsumeVisits(ctx, deliveries, visitRepo)
		}()
		log.Info("visit events go through the broker", "queue", cfg.Analytics.QueueName)

		stop = func() {
			cancel()
			<-done
			if err := broker.Close(); err != nil {
				log.Warn("failed to close broker", "err", err)
			}
		}
		return broker.Sink(), stop, nil
	}

	events := make(chan models.VisitEvent, cfg.Analytics.BufferSize)
	wg := workers.StartVisitWorkers(cfg.Analytics.WorkerCount, events, visitRepo)
	log.Info("visit event channel initialised", "buffer", cfg.Analytics.BufferSize, "workers", cfg.Analytics.WorkerCount)

	channelSink := workers.NewChannelSink(events)
	stop = func() {
		// Un handler encore actif après un Shutdown expiré trouve le sink
		// fermé et abandonne l'événement.
		channelSink.Close()
		wg.Wait()
	}
	return channelSink, stop, nil
}
