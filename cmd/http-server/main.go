package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"http-server/application/http/server"
	"http-server/application/router"
	"http-server/config"
	"http-server/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a JSON config file")
		addr       = flag.String("addr", "", "address to listen on (default "+config.DefaultAddr+")")
		directory  = flag.String("directory", "", "directory served under /files/")
	)
	flag.Parse()

	if err := run(*configPath, *addr, *directory); err != nil {
		fmt.Fprintln(os.Stderr, "http-server:", err)
		os.Exit(1)
	}
}

func run(configPath, addr, directory string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if directory != "" {
		cfg.Directory = directory
	}

	if cfg.Directory != "" {
		info, err := os.Stat(cfg.Directory)
		if err != nil {
			return errors.Wrap(err, "checking directory")
		}
		if !info.IsDir() {
			return errors.Errorf("%q is not a directory", cfg.Directory)
		}
	}

	opts, err := cfg.ServerOptions()
	if err != nil {
		return err
	}

	zl, err := newZapLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	logger := slog.New(zapslog.NewHandler(zl.Core()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := tcp.Listen(ctx, cfg.Addr, tcp.ListenOptions{ReusePort: cfg.ReusePort})
	if err != nil {
		return errors.Wrap(err, "listening")
	}

	r := router.New(cfg.Directory, logger.With("component", "router"))
	s := server.New(l, logger, clock.New(), r.Handle, opts)

	s.Start()
	logger.Info("server started", "addr", l.Addr().String(), "directory", cfg.Directory)

	<-ctx.Done()
	logger.Info("shutting down")

	return s.Close()
}

func newZapLogger(cfg config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == config.LogFormatConsole {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	zl, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return zl, nil
}
