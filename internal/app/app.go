// Package app assembles the intake service: storage, retrieval, the
// classifier stack, the engine and every background service, wired from one
// Config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deskwise/intake/internal/classify"
	"github.com/deskwise/intake/internal/config"
	"github.com/deskwise/intake/internal/contextinfo"
	"github.com/deskwise/intake/internal/drafter"
	"github.com/deskwise/intake/internal/embeddings"
	"github.com/deskwise/intake/internal/engine"
	"github.com/deskwise/intake/internal/fasttrack"
	"github.com/deskwise/intake/internal/gateway"
	"github.com/deskwise/intake/internal/health"
	"github.com/deskwise/intake/internal/llm"
	"github.com/deskwise/intake/internal/retrieval"
	"github.com/deskwise/intake/internal/scheduler"
	"github.com/deskwise/intake/internal/session"
	"github.com/deskwise/intake/internal/store"
	"github.com/deskwise/intake/internal/watcher"
)

type App struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *store.Store
	rules    *fasttrack.Table
	index    *retrieval.Index
	sessions *session.Manager
	registry *health.Registry
	engine   *engine.Engine
	gateway  *gateway.Service
	watch    *watcher.Service
	sched    *scheduler.Scheduler
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	st, err := store.New(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := st.AutoMigrate(context.Background()); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	var provider llm.Provider
	if cfg.LLM.Enabled {
		provider = llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			CallTimeout: time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		}, logger.With("component", "llm"))
	}

	var index *retrieval.Index
	if cfg.Embeddings.Enabled {
		embedder := embeddings.NewOpenAIEmbedder(embeddings.OpenAIConfig{
			APIKey:  cfg.Embeddings.APIKey,
			BaseURL: cfg.Embeddings.BaseURL,
			Model:   cfg.Embeddings.Model,
		})
		if index, err = retrieval.NewIndex(embedder, logger); err != nil {
			st.Close()
			return nil, fmt.Errorf("build index: %w", err)
		}
	}

	rules, err := fasttrack.Load(cfg.FastTrack.RulesPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load fasttrack rules: %w", err)
	}

	registry := health.NewRegistry(5 * time.Second)
	registry.Register(health.PingCheck("database", st.Ping))
	registry.Register(health.Check{Name: "model", Run: func(context.Context) (health.Status, string) {
		if provider == nil {
			return health.StatusDegraded, "language model disabled"
		}
		return health.StatusHealthy, ""
	}})

	check := retrieval.NewRelevanceChecker(provider, logger)
	searcher := retrieval.NewSearcher(index, st, check, cfg.Retrieval, logger)
	sessions := session.NewManager(nil, logger.With("component", "session"))
	detectors := contextinfo.New(st, cfg.Detectors, cfg.Hours, nil)

	eng := engine.New(cfg, engine.Deps{
		Sessions:   sessions,
		Classifier: classify.New(provider, cfg.Classifier, logger),
		Drafter:    drafter.New(provider, cfg.Drafter, logger),
		Search:     searcher,
		Tickets:    st,
		Detectors:  detectors,
		FastTrack:  rules,
		HealthSummary: func(ctx context.Context) string {
			return contextinfo.SummarizeHealth(registry.RunAll(ctx))
		},
		Logger: logger,
	})

	watch, err := watcher.New(cfg.FastTrack.RulesPath, logger, func(_ context.Context, path string) {
		if err := rules.Reload(path); err != nil {
			logger.Warn("fasttrack reload failed", "path", path, "error", err)
			return
		}
		logger.Info("fasttrack rules reloaded", "path", path, "rules", rules.Len())
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		rules:    rules,
		index:    index,
		sessions: sessions,
		registry: registry,
		engine:   eng,
		gateway:  gateway.New(cfg.Gateway.Addr, eng, registry, logger),
		watch:    watch,
		sched:    scheduler.New(logger),
	}
	if err := app.registerJobs(); err != nil {
		st.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) registerJobs() error {
	idle := time.Duration(a.cfg.Session.IdleTimeoutMin) * time.Minute
	err := a.sched.Add(a.cfg.Scheduler.SweepSpec, "session-sweep", func(context.Context) {
		a.sessions.SweepIdle(idle)
	})
	if err != nil {
		return err
	}
	if a.index == nil {
		return nil
	}
	return a.sched.Add(a.cfg.Scheduler.ReindexSpec, "reindex", func(ctx context.Context) {
		rebuildCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := a.index.Rebuild(rebuildCtx, a.store); err != nil {
			a.logger.Error("scheduled reindex failed", "error", err)
		}
	})
}

// Run starts the gateway, the rule watcher and the scheduler and blocks
// until ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("intake service starting",
		"addr", a.cfg.Gateway.Addr,
		"fasttrack_rules", a.rules.Len(),
		"semantic_search", a.index != nil)

	if a.index != nil {
		go func() {
			buildCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			defer cancel()
			if err := a.index.Rebuild(buildCtx, a.store); err != nil {
				a.logger.Error("initial index build failed", "error", err)
			}
		}()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return a.gateway.Start(groupCtx) })
	group.Go(func() error { return a.watch.Start(groupCtx) })
	group.Go(func() error { return a.sched.Start(groupCtx) })
	return group.Wait()
}

// RebuildIndex runs one synchronous corpus reindex; used by the index
// subcommand.
func (a *App) RebuildIndex(ctx context.Context) error {
	if a.index == nil {
		return fmt.Errorf("embeddings are disabled in configuration")
	}
	return a.index.Rebuild(ctx, a.store)
}

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
