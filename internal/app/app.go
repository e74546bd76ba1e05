// Package app wires the engine's object graph: one shared role registry and
// generation client, plus an isolated runtime (stores and services) per
// configured organization.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/execdesk/execdesk/internal/application/kpi"
	"github.com/execdesk/execdesk/internal/application/learning"
	"github.com/execdesk/execdesk/internal/application/orchestrator"
	"github.com/execdesk/execdesk/internal/application/pool"
	"github.com/execdesk/execdesk/internal/application/router"
	"github.com/execdesk/execdesk/internal/application/tasks"
	"github.com/execdesk/execdesk/internal/config"
	"github.com/execdesk/execdesk/internal/domain/journal"
	"github.com/execdesk/execdesk/internal/generation"
	journalstore "github.com/execdesk/execdesk/internal/infrastructure/journal"
	"github.com/execdesk/execdesk/internal/infrastructure/keystore"
	"github.com/execdesk/execdesk/internal/infrastructure/metricsdb"
	"github.com/execdesk/execdesk/internal/infrastructure/sse"
	"github.com/execdesk/execdesk/internal/infrastructure/statefile"
	"github.com/execdesk/execdesk/internal/notify"
	"github.com/execdesk/execdesk/internal/roles"
)

// OrgRuntime bundles every service for one organization.
type OrgRuntime struct {
	Key          string
	Profile      config.OrgProfile
	Tasks        *tasks.Service
	Pool         *pool.Service
	Router       *router.Service
	KPI          *kpi.Service
	Learning     *learning.Service
	Orchestrator *orchestrator.Orchestrator
	Journal      journal.Sink

	journal *journalstore.Store
	metrics *metricsdb.Store
}

// App is the assembled engine.
type App struct {
	Config   *config.Config
	Roles    *roles.Registry
	Gen      generation.Client
	Notifier notify.Sender
	Stream   *sse.Hub
	Logger   zerolog.Logger

	keys  *keystore.Store
	orgs  map[string]*OrgRuntime
	order []string
}

// New builds the full object graph. Any construction failure is fatal;
// nothing is half-wired.
func New(ctx context.Context, cfg *config.Config, gen generation.Client, logger zerolog.Logger) (*App, error) {
	reg, err := roles.LoadDir(cfg.RolesDir)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}

	a := &App{
		Config:   cfg,
		Roles:    reg,
		Gen:      gen,
		Notifier: &notify.LogSender{Logger: logger},
		Stream:   sse.NewHub(),
		Logger:   logger,
		keys:     keystore.New(cfg.SigningKey),
		orgs:     make(map[string]*OrgRuntime),
	}
	for _, key := range cfg.OrgKeys() {
		rt, err := a.buildOrg(ctx, key)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.orgs[key] = rt
		a.order = append(a.order, key)
	}
	return a, nil
}

func (a *App) buildOrg(ctx context.Context, key string) (*OrgRuntime, error) {
	profile, err := a.Config.ForOrg(key)
	if err != nil {
		return nil, err
	}
	dir := a.Config.StateDir
	logger := a.Logger

	sink, err := journalstore.Open(dir, key, a.keys.KeyFor(key), logger)
	if err != nil {
		return nil, fmt.Errorf("org %s: %w", key, err)
	}
	history, err := metricsdb.Open(dir, key, logger)
	if err != nil {
		return nil, fmt.Errorf("org %s: %w", key, err)
	}
	taskStore, err := statefile.NewTasksStore(dir, key, logger)
	if err != nil {
		return nil, fmt.Errorf("org %s: %w", key, err)
	}
	staffStore, err := statefile.NewStaffStore(dir, key, logger)
	if err != nil {
		return nil, fmt.Errorf("org %s: %w", key, err)
	}
	learnStore, err := statefile.NewLearningStore(dir, key, logger)
	if err != nil {
		return nil, fmt.Errorf("org %s: %w", key, err)
	}

	tasksSvc := tasks.NewService(taskStore, sink, logger)
	poolSvc := pool.NewService(staffStore, a.Roles, sink, logger)
	routeSvc := router.NewService(a.Roles, poolSvc, tasksSvc, a.Gen, sink, logger)
	kpiSvc := kpi.NewService(history, profile.Thresholds, sink, logger)
	learnSvc, err := learning.NewService(ctx, learnStore, logger)
	if err != nil {
		return nil, fmt.Errorf("org %s: %w", key, err)
	}

	notifier := notify.Fanout{a.Notifier, &sse.Sender{Hub: a.Stream, Org: key}}
	orch := orchestrator.New(
		key, profile, a.Gen,
		tasksSvc, routeSvc, poolSvc, kpiSvc, learnSvc,
		sink, notifier, a.Config.NotifyChannels, logger,
	)

	return &OrgRuntime{
		Key:          key,
		Profile:      profile,
		Tasks:        tasksSvc,
		Pool:         poolSvc,
		Router:       routeSvc,
		KPI:          kpiSvc,
		Learning:     learnSvc,
		Orchestrator: orch,
		Journal:      sink,
		journal:      sink,
		metrics:      history,
	}, nil
}

// Org returns the runtime for one organization key.
func (a *App) Org(key string) (*OrgRuntime, bool) {
	rt, ok := a.orgs[key]
	return rt, ok
}

// Orgs returns runtimes in configuration order.
func (a *App) Orgs() []*OrgRuntime {
	out := make([]*OrgRuntime, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.orgs[k])
	}
	return out
}

// Orchestrators returns every org's orchestrator in configuration order.
func (a *App) Orchestrators() []*orchestrator.Orchestrator {
	out := make([]*orchestrator.Orchestrator, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.orgs[k].Orchestrator)
	}
	return out
}

// Close releases every org's stores and disconnects stream clients.
func (a *App) Close() {
	a.Stream.Stop()
	for _, rt := range a.orgs {
		if rt.journal != nil {
			_ = rt.journal.Close()
		}
		if rt.metrics != nil {
			_ = rt.metrics.Close()
		}
	}
}
