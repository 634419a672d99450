package main

import (
	"github.com/aatumaykin/ghbackup/internal/app"
	"github.com/aatumaykin/ghbackup/internal/backup"
	"github.com/aatumaykin/ghbackup/internal/config"
	"github.com/aatumaykin/ghbackup/internal/logger"
	"github.com/aatumaykin/ghbackup/internal/storage"
)

// services are the components the one-shot commands work with.
type services struct {
	cfg     *config.Config
	log     *logger.Logger
	store   *storage.Store
	backups *backup.Service
}

func openServices(flags *globalFlags) (*services, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	notifier, err := app.BuildNotifier(cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc := backup.NewService(backup.Deps{
		Store:       store,
		Clients:     app.GitHubClientFactory(cfg, log),
		Cloner:      backup.NewGitCloner(cfg.Backup.GitBinary, cfg.Backup.CloneDepth, cfg.Backup.CloneTimeout()),
		Notifier:    notifier,
		Logger:      log,
		DefaultPath: cfg.Backup.DefaultPath,
	})
	return &services{cfg: cfg, log: log, store: store, backups: svc}, nil
}

func (s *services) Close() error {
	return s.store.Close()
}
