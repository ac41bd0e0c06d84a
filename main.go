package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/zerbitx/gnockcycle/config"
	"github.com/zerbitx/gnockcycle/gnocker"
	"github.com/zerbitx/gnockcycle/persist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("bad environment")
	}
	logger := newLogger(cfg)

	g := gnocker.New(
		gnocker.WithLogger(logger),
		gnocker.WithHost(cfg.Host),
		gnocker.WithPort(cfg.Port),
		gnocker.WithTLSPort(cfg.TLSPort),
		gnocker.WithTLSFiles(cfg.TLSCertFile, cfg.TLSKeyFile),
		gnocker.WithAdminBasePath(cfg.AdminPath),
		gnocker.WithStaticDir(cfg.StaticDir),
		gnocker.WithDataDirs(cfg.BaseDir, cfg.DataDir),
		gnocker.WithSnapshot(cfg.SnapshotPath),
	)

	// Try to load a seed config, no seed...no problem
	seed, err := persist.LoadSeed(cfg.SeedPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load seed")
	}

	if err := g.Restore(seed); err != nil {
		logger.WithError(err).Fatal("failed to restore mocks")
	}

	errc := make(chan error, 1)
	go func() {
		errc <- g.Start()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		logger.WithError(err).Error("server stopped")
	case sig := <-sigc:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	if err := g.Shutdown(); err != nil {
		logger.WithError(err).Fatal("unclean shutdown")
	}
}

func newLogger(cfg *config.Env) *logrus.Logger {
	logger := logrus.New()
	logger.SetReportCaller(true)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}
