package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/opsmind/auth/internal/config"
	"github.com/opsmind/auth/internal/events"
	"github.com/opsmind/auth/internal/hash"
	"github.com/opsmind/auth/internal/httpserver"
	"github.com/opsmind/auth/internal/mail"
	"github.com/opsmind/auth/internal/metrics"
	"github.com/opsmind/auth/internal/middleware"
	"github.com/opsmind/auth/internal/otp"
	"github.com/opsmind/auth/internal/repo"
	"github.com/opsmind/auth/internal/search"
	"github.com/opsmind/auth/internal/service"
	"github.com/opsmind/auth/pkg/db"
	"github.com/opsmind/auth/pkg/tokens"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the OTP sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	gdb, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(gdb)
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}

	hasher := hash.New(cfg.BcryptCost)
	store := repo.New(gdb, hasher, otp.NewGenerator(cfg.OTPLength, cfg.OTPWindow()))
	if err := store.Seed(ctx, seedAdmin(cfg), log); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	var publisher events.Publisher = events.Noop{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		p := events.NewProducer(brokers, cfg.KafkaTopic)
		defer p.Close()
		publisher = p
		log.Info("kafka_producer_ready", "brokers", brokers, "topic", cfg.KafkaTopic)
	}

	directory, err := newDirectory(ctx, cfg, log)
	if err != nil {
		return err
	}

	limits := middleware.StoreFor(middleware.MemoryStore)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis_unreachable", "error", err)
		}
		rl := &middleware.RedisLimiter{Client: rdb, Prefix: "auth:rl", Timeout: 200 * time.Millisecond, Log: log}
		limits = rl.Store
	}

	issuer := tokens.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTExpiresIn)
	mailer, err := newMailer(cfg, log)
	if err != nil {
		return err
	}
	otpSvc := &service.OTPService{Store: store, Hasher: hasher, Mail: mailer, Metrics: m}
	authSvc := &service.AuthService{
		Store:          store,
		OTP:            otpSvc,
		Hasher:         hasher,
		Tokens:         issuer,
		Events:         publisher,
		Metrics:        m,
		AllowedDomains: cfg.Domains(),
	}
	adminSvc := &service.AdminService{Store: store, Hasher: hasher, Events: publisher}
	if directory != nil {
		authSvc.Directory = directory
		adminSvc.Directory = directory
	}

	e := httpserver.New(httpserver.Options{
		Log:         log,
		Development: cfg.IsDevelopment(),
		OTPLength:   cfg.OTPLength,
		CORSOrigins: cfg.CORSOrigins(),
	}, &httpserver.Deps{
		AuthHandler:   &httpserver.AuthHTTP{Svc: authSvc},
		AdminHandler:  &httpserver.AdminHTTP{Svc: adminSvc},
		HealthHandler: &httpserver.HealthHTTP{DB: sqlDB},
		Guard:         &middleware.Guard{Tokens: issuer, Accounts: store},
		Limits:        limits,
		Metrics:       m,
		Gatherer:      reg,
	})

	sweeper := &service.Sweeper{
		Store:    store,
		Interval: cfg.OTPCleanupInterval,
		Log:      log.With("svc", "otp_sweeper"),
		Metrics:  m,
	}
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(sweepCtx)
	}()

	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server_starting", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown_signal")
	case err = <-errCh:
		log.Error("server_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := e.Shutdown(shutdownCtx); serr != nil {
		log.Error("server_shutdown_failed", "error", serr)
	}
	cancelSweep()
	wg.Wait()
	log.Info("server_stopped")
	return err
}

func newMailer(cfg *config.Config, log *slog.Logger) (mail.Sender, error) {
	if cfg.MailDriver == "log" {
		return mail.LogSender{Log: log.With("svc", "mail")}, nil
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		ValidFor: cfg.OTPWindow(),
		Retries:  3,
	})
}

// newDirectory returns nil when ES_URL is unset; listing then falls back to
// the database.
func newDirectory(ctx context.Context, cfg *config.Config, log *slog.Logger) (*search.Directory, error) {
	if cfg.ESURL == "" {
		return nil, nil
	}
	es, err := search.NewClient(search.Config{
		URL:      cfg.ESURL,
		Username: cfg.ESUser,
		Password: cfg.ESPassword,
		Index:    cfg.ESIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	d := search.NewDirectory(es, cfg.ESIndex)
	if err := d.Ping(ctx); err != nil {
		log.Warn("elasticsearch_unreachable", "error", err)
	}
	return d, nil
}
