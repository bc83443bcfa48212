package cli

import (
	"context"
	"errors"
	"fmt"

	"YieldOptimizer/internal/auth"
	"YieldOptimizer/internal/config"
	"YieldOptimizer/internal/fund"
	"YieldOptimizer/internal/governance"
	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/notifier"
	"YieldOptimizer/internal/protocol"
	"YieldOptimizer/internal/rates"
	"YieldOptimizer/internal/recorder"
	"YieldOptimizer/internal/scheduler"
	"YieldOptimizer/internal/store"

	"github.com/rs/zerolog"
)

// App is the wired set of components every command works against.
type App struct {
	Config     *config.Config
	Log        zerolog.Logger
	Store      store.Store
	Recorder   recorder.Recorder
	Adapters   *protocol.Registry
	Rates      rates.Source
	Governance *governance.Service
	Fund       *fund.Manager
	Telegram   *notifier.TelegramNotifier
	Alarms     *notifier.AlarmSink
}

// NewApp opens storage and wires the fund manager. Governance is
// bootstrapped from configuration when no record exists yet.
func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	if cfg.Database.SQLitePath != "" {
		st, err := store.NewSQLiteStore(cfg.Database.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		a.Store = st
	} else {
		log.Warn().Msg("database.sqlite_path not set, ledgers live in memory only")
		a.Store = store.NewMemoryStore()
	}

	if cfg.Database.EventsPath != "" {
		rec, err := recorder.NewSQLiteRecorder(cfg.Database.EventsPath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			a.Recorder = recorder.NewNoopRecorder()
		} else {
			a.Recorder = rec
		}
	} else {
		a.Recorder = recorder.NewNoopRecorder()
	}

	sinks := recorder.MultiSink{recorder.NewRecorderSink(a.Recorder, log)}
	if cfg.TelegramEnabled() {
		a.Telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		a.Alarms = notifier.NewAlarmSink(a.Telegram, log)
		sinks = append(sinks, a.Alarms)
	}

	switch cfg.Rates.Source {
	case "http":
		a.Rates = rates.NewHTTPSource(cfg.Rates.BaseURL, cfg.Rates.APIKey, cfg.Rates.RatePath, cfg.Proxy, cfg.RatesTimeout())
	default:
		a.Rates = rates.NewStaticSource(cfg.StaticRates(), cfg.Rates.Default)
	}
	log.Info().Str("source", a.Rates.Name()).Msg("yield rate source")

	a.Adapters = protocol.NewRegistry()
	for _, p := range cfg.Protocols {
		a.Adapters.Register(protocol.NewSimVenue(model.ParseProtocol(p.ID), p.EnforcePositions, log))
	}

	a.Governance = governance.NewService(a.Store, sinks, log)
	if _, err := a.Governance.Bootstrap(ctx, cfg.Governance.Authority, cfg.Governance.FeeRate); err != nil {
		a.Close()
		return nil, err
	}

	cooldown, err := cfg.ReallocationPeriod()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("fund.min_reallocation_period: %w", err)
	}
	a.Fund, err = fund.NewManager(fund.Config{
		Store:                a.Store,
		Adapters:             a.Adapters,
		Rates:                a.Rates,
		Fees:                 a.Governance,
		Auth:                 auth.OwnerAuthorizer{},
		Events:               sinks,
		Log:                  log,
		Cooldown:             cooldown,
		StrictProtocolChecks: cfg.Fund.StrictProtocolChecks,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Tokens builds the bearer token issuer from auth configuration.
func (a *App) Tokens() (*auth.Tokens, error) {
	ttl, err := a.Config.TokenTTL()
	if err != nil {
		return nil, fmt.Errorf("auth.token_ttl: %w", err)
	}
	return auth.NewTokens(a.Config.Auth.JWTSecret, a.Config.Auth.Issuer, ttl)
}

// Jobs converts the configured sweep jobs.
func (a *App) Jobs() []scheduler.Job {
	jobs := make([]scheduler.Job, 0, len(a.Config.Schedule.Jobs))
	for _, j := range a.Config.Schedule.Jobs {
		job := scheduler.Job{
			Owner:     j.Owner,
			AssetMint: j.AssetMint,
			Amount:    j.Amount,
			From:      model.ParseProtocol(j.From),
		}
		for _, c := range j.Candidates {
			job.Candidates = append(job.Candidates, model.ParseProtocol(c))
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func (a *App) Close() error {
	var errs []error
	if a.Recorder != nil {
		errs = append(errs, a.Recorder.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
