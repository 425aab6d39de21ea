package main

import (
	"context"
	"os"

	"github.com/projects-hacks/clear-clause/internal/analysis"
	"github.com/projects-hacks/clear-clause/internal/client"
	"github.com/projects-hacks/clear-clause/internal/config"
	"github.com/projects-hacks/clear-clause/internal/logging"
	"github.com/projects-hacks/clear-clause/internal/session"
	"github.com/projects-hacks/clear-clause/internal/store"
)

type environmentFactory func(ctx context.Context) (*environment, error)

// environment bundles everything a command needs: config, the durable
// stores, the hydrated session manager and the API client.
type environment struct {
	cfg     config.Config
	repo    store.Repository
	manager *session.Manager
	api     *client.Client
	log     logging.Logger
}

func newEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel()))

	paths, err := repositoryPaths()
	if err != nil {
		return nil, err
	}
	repo, err := store.OpenRepository(paths, cfg.StorageBackend(), cfg.SessionTTL())
	if err != nil {
		return nil, err
	}

	manager := session.NewManager(repo.Sessions(), cfg.SessionTTL(), log)
	if err := manager.Hydrate(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	manager.ExpireStale(ctx)

	return &environment{
		cfg:     cfg,
		repo:    repo,
		manager: manager,
		api:     client.New(cfg.BackendBaseURL()),
		log:     log,
	}, nil
}

func (e *environment) Close() {
	_ = e.repo.Close()
}

func (e *environment) analyzer() *analysis.Controller {
	return analysis.NewController(
		analysis.NewClientBackend(e.api),
		e.manager,
		analysis.Options{
			Transport:      e.cfg.TransportMode(),
			PollInterval:   e.cfg.PollInterval(),
			MaxUploadBytes: e.cfg.MaxUploadBytes(),
		},
		e.log,
	)
}

func repositoryPaths() (store.RepositoryPaths, error) {
	sessionsPath, err := config.SessionsPath()
	if err != nil {
		return store.RepositoryPaths{}, err
	}
	chatsDir, err := config.ChatsDir()
	if err != nil {
		return store.RepositoryPaths{}, err
	}
	prefsPath, err := config.PrefsPath()
	if err != nil {
		return store.RepositoryPaths{}, err
	}
	dbPath, err := config.DBPath()
	if err != nil {
		return store.RepositoryPaths{}, err
	}
	return store.RepositoryPaths{
		SessionsPath: sessionsPath,
		ChatsDir:     chatsDir,
		PrefsPath:    prefsPath,
		DBPath:       dbPath,
	}, nil
}
