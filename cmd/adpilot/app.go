package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/harunaga/adpilot/internal/apply"
	"github.com/harunaga/adpilot/internal/config"
	"github.com/harunaga/adpilot/internal/httpapi"
	"github.com/harunaga/adpilot/internal/metrics"
	"github.com/harunaga/adpilot/internal/notify"
	"github.com/harunaga/adpilot/internal/orchestrator"
	"github.com/harunaga/adpilot/internal/warehouse"
)

// app is the assembled process: warehouse, redis, apply guard, notifiers,
// orchestrator, metrics.
type app struct {
	cfg       config.Config
	log       zerolog.Logger
	warehouse *warehouse.Client
	rdb       *redis.Client
	reg       *metrics.Registry
	promReg   *prometheus.Registry
	hub       *httpapi.Hub
	orc       *orchestrator.Orchestrator
}

// newApp wires everything from config. The ad-platform sink is the logging
// shadow sink; APPLY mode streams through it with full idempotency
// bookkeeping so the platform client can be swapped in behind the same
// interface.
func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)

	wh, err := warehouse.NewClient(cfg.Warehouse, log)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	} else {
		log.Warn().Msg("redis not configured: apply dedupe and run locks disabled")
	}

	reg := metrics.NewRegistry()
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	reg.Register(promReg)

	hub := httpapi.NewHub(log)
	notifier := notify.Multi{notify.FromConfig(cfg.Slack, log), hub}

	applier := apply.NewGuarded(apply.NewLogSink(log), cfg.Apply, rdb, log)
	orc := orchestrator.New(
		wh.Source(), wh.Sink(), applier, notifier, reg, rdb,
		cfg.Flags(), cfg.EngineConfigs(), log,
	)

	return &app{
		cfg:       cfg,
		log:       log,
		warehouse: wh,
		rdb:       rdb,
		reg:       reg,
		promReg:   promReg,
		hub:       hub,
		orc:       orc,
	}, nil
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	a.warehouse.Close()
}
