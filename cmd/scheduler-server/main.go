package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"github.com/sbrito346/school-project/internal/config"
	"github.com/sbrito346/school-project/internal/database"
	"github.com/sbrito346/school-project/internal/directory"
	"github.com/sbrito346/school-project/internal/service/appointments"
	"github.com/sbrito346/school-project/internal/service/customers"
	"github.com/sbrito346/school-project/internal/session"
	"github.com/sbrito346/school-project/internal/store/bunstore"
	grpcTransport "github.com/sbrito346/school-project/internal/transport/grpc"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "scheduler-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "scheduler-server"),
	)
	slog.SetDefault(log)

	if err := run(log, cfg); err != nil {
		log.Error("server exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(log *slog.Logger, cfg config.Config) error {
	log.Info("starting", slog.String("grpc_addr", cfg.Addr()), slog.String("log_level", cfg.LogLevel))

	if cfg.SessionTokenSecret == "" {
		return errors.New("SCHEDULER_SESSION_TOKEN_SECRET is required")
	}
	loc, err := cfg.SessionLocation()
	if err != nil {
		return err
	}
	hours, err := cfg.BusinessHours()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("connecting to database", database.LogArgs(cfg)...)
	db, err := database.Open(cfg)
	if err != nil {
		args := append([]any{slog.Any("err", err)}, database.LogArgs(cfg)...)
		log.Error("database connection failed", args...)
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()
	if err := bunstore.CreateSchema(ctx, db.DB); err != nil {
		return err
	}

	dir := directory.New(db.Stores, db.Tx, directory.Options{Logger: log, Location: loc})
	if err := dir.Load(ctx); err != nil {
		return err
	}
	log.Info("directory loaded",
		slog.Int("customers", len(dir.Customers())),
		slog.Int("appointments", len(dir.Appointments())),
		slog.String("time_zone", loc.String()),
	)

	activity, closer, err := session.OpenActivityLog(cfg.ActivityLogPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	issuer, err := session.NewIssuer(cfg.SessionTokenSecret, cfg.SessionTokenTTL)
	if err != nil {
		return err
	}

	srv := grpcTransport.NewServer(grpcTransport.Deps{
		Auth:           session.NewAuthenticator(dir, loc, activity),
		Tokens:         issuer,
		Appointments:   appointments.NewService(dir, hours, log),
		Customers:      customers.NewService(dir, log),
		Directory:      dir,
		UpcomingWindow: cfg.UpcomingWindow,
	}, log)

	limiter := grpcTransport.NewLoginLimiter(cfg.LoginRPS, cfg.LoginBurst)
	go limiter.Sweep(ctx, time.Minute, 10*time.Minute)

	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcTransport.RequestTimeout(cfg.GRPCRequestTimeout),
		limiter.Interceptor(),
		grpcTransport.Auth(issuer, dir, log),
	))
	grpcTransport.RegisterSchedulerServer(grpcServer, srv)

	lis, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.Addr()))
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()

	log.Info("grpc server started", slog.String("grpc_addr", cfg.Addr()))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, grpcServer, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
	}
	return nil
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
