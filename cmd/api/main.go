package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"digytal.com/control/internal/account"
	"digytal.com/control/internal/auth"
	"digytal.com/control/internal/catalog"
	"digytal.com/control/internal/config"
	"digytal.com/control/internal/httpapi"
	"digytal.com/control/internal/mail"
	"digytal.com/control/internal/obs"
	"digytal.com/control/internal/onboarding"
	"digytal.com/control/internal/store/memory"
	"digytal.com/control/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// store is everything the services need from persistence.
type store interface {
	auth.UserStore
	catalog.Store
	account.Store
	onboarding.Store
}

func main() {
	_ = godotenv.Load()

	log := obs.Logger()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	obs.SetLevel(cfg.LogLevel)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		st    store
		probe httpapi.ReadyProbe
	)
	if cfg.PGDSN != "" {
		pgStore, err := pg.Open(cfg.PGDSN, cfg.DBMaxOpen)
		if err != nil {
			log.WithError(err).Fatal("open db")
		}
		defer pgStore.Close()
		st = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Warn("CONTROL_PG_DSN not set; using in-memory store")
		st = memory.New()
	}

	var sender mail.Sender = mail.LogSender{Logger: log}
	if cfg.MailEnabled() {
		sender = mail.NewSMTPSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From)
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.Secret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
		auth.WithResetTTL(cfg.Auth.ResetTTL),
	)
	if err != nil {
		log.WithError(err).Fatal("token issuer")
	}
	authOpts := []auth.Option{auth.WithLogger(log), auth.WithSender(sender), auth.WithResetURL(cfg.Auth.ResetURL)}
	authn := auth.NewAuthenticator(st, tokens, authOpts...)
	passwords := auth.NewPasswordService(st, tokens, authn, authOpts...)

	api := httpapi.New(probe, version, httpapi.Services{
		Authenticator: authn,
		Passwords:     passwords,
		Onboarding:    onboarding.NewService(st, passwords),
		Catalog:       catalog.NewService(st),
		Accounts:      account.NewService(st),
	},
		httpapi.WithRateLimit(cfg.RateBurst, cfg.RatePerSec),
		httpapi.WithCORSOrigins(cfg.CORSOrigins...),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := httpapi.NewGRPCServer(probe, 10*time.Second)
	grpcSrv := grpc.NewServer()
	health.Register(grpcSrv)
	go health.Watch(ctx)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.WithError(err).Fatal("grpc listen")
	}
	go func() {
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.WithError(err).Error("grpc serve")
		}
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	log.WithFields(logrus.Fields{
		"version":   version,
		"http_addr": cfg.HTTPAddr,
		"grpc_addr": cfg.GRPCAddr,
		"postgres":  cfg.PGDSN != "",
		"smtp":      cfg.MailEnabled(),
	}).Info("control-api started")

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()
	log.Info("stopped")
}
