// Package scheduler runs the periodic reallocation sweep over configured
// owners and answers operator commands.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"YieldOptimizer/internal/fund"
	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/notifier"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Optimizer is the part of the fund manager the sweep drives.
type Optimizer interface {
	OptimizeYield(ctx context.Context, req fund.Request) (*fund.Result, error)
	Ledger(ctx context.Context, owner string) (*model.FundLedger, error)
}

type GovernanceReader interface {
	Get(ctx context.Context) (*model.GovernanceRecord, error)
}

// Messenger delivers sweep reports. Nil disables reporting.
type Messenger interface {
	SendWithRetry(ctx context.Context, msg notifier.Message, maxRetries int) error
}

// Job moves one owner's position to the best paying candidate. From is used
// only while the ledger has no current protocol.
type Job struct {
	Owner      string
	AssetMint  string
	Amount     uint64
	From       model.ProtocolID
	Candidates []model.ProtocolID
}

// Summary counts the outcomes of one sweep.
type Summary struct {
	Moved   int
	Skipped int
	Failed  int
}

// Scheduler manages the sweep cron task.
type Scheduler struct {
	Cron       *cron.Cron
	Fund       Optimizer
	Governance GovernanceReader
	Notifier   Messenger
	Jobs       []Job
	Cooldown   time.Duration
	Ctx        context.Context

	log     zerolog.Logger
	running sync.Mutex
}

// NewScheduler creates a new Scheduler. Overlapping sweeps are skipped.
func NewScheduler(ctx context.Context, fm Optimizer, gov GovernanceReader, msg Messenger, jobs []Job, cooldown time.Duration, log zerolog.Logger) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log: log}
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		Fund:       fm,
		Governance: gov,
		Notifier:   msg,
		Jobs:       jobs,
		Cooldown:   cooldown,
		Ctx:        ctx,
		log:        log,
	}
}

// Register adds the sweep task.
func (s *Scheduler) Register(sweepCron string) error {
	if _, err := s.Cron.AddFunc(sweepCron, func() { s.RunSweepNow() }); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Jobs)).Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunSweepNow sweeps every job once.
func (s *Scheduler) RunSweepNow() Summary {
	s.running.Lock()
	defer s.running.Unlock()

	s.log.Info().Msg("running reallocation sweep")
	var sum Summary
	for _, job := range s.Jobs {
		switch s.runJob(job) {
		case jobMoved:
			sum.Moved++
		case jobFailed:
			sum.Failed++
		default:
			sum.Skipped++
		}
	}
	s.log.Info().Int("moved", sum.Moved).Int("skipped", sum.Skipped).Int("failed", sum.Failed).Msg("sweep finished")
	if sum.Moved > 0 || sum.Failed > 0 {
		s.trySend(notifier.FormatSweep(sum.Moved, sum.Skipped, sum.Failed))
	}
	return sum
}

type jobResult int

const (
	jobSkipped jobResult = iota
	jobMoved
	jobFailed
)

func (s *Scheduler) runJob(job Job) jobResult {
	log := s.log.With().Str("owner", job.Owner).Logger()
	ledger, err := s.Fund.Ledger(s.Ctx, job.Owner)
	if err != nil {
		log.Error().Err(err).Msg("load ledger")
		return jobFailed
	}
	current := ledger.CurrentProtocol
	if current.IsNone() {
		current = job.From
	}
	if current.IsNone() {
		log.Warn().Msg("no current protocol and no configured origin, skipping")
		return jobSkipped
	}

	for _, candidate := range job.Candidates {
		if candidate == current {
			continue
		}
		// The sweep acts for the owner it was configured for.
		res, err := s.Fund.OptimizeYield(s.Ctx, fund.Request{
			Caller:          job.Owner,
			Owner:           job.Owner,
			CurrentProtocol: current,
			NewProtocol:     candidate,
			AssetMint:       job.AssetMint,
			Amount:          job.Amount,
		})
		switch {
		case err == nil:
			log.Info().Str("to", string(res.To)).Uint64("net", res.Net).Msg("sweep moved funds")
			return jobMoved
		case errors.Is(err, model.ErrGuardReleaseFailed):
			log.Error().Err(err).Str("candidate", string(candidate)).Msg("guard left held, owner locked out")
			return jobFailed
		case model.IsBusinessOutcome(err):
			continue
		case errors.Is(err, model.ErrReallocationTooFrequent), errors.Is(err, model.ErrReentrancyDetected):
			log.Debug().Err(err).Msg("owner not eligible")
			return jobSkipped
		default:
			log.Error().Err(err).Str("candidate", string(candidate)).Msg("sweep reallocation failed")
			return jobFailed
		}
	}
	return jobSkipped
}

// HandleCommand processes an operator command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch fields[0] {
	case "/ledger":
		if len(fields) < 2 {
			return "usage: /ledger &lt;owner&gt;"
		}
		l, err := s.Fund.Ledger(ctx, fields[1])
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatLedger(l, s.Cooldown)
	case "/fee":
		g, err := s.Governance.Get(ctx)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatGovernance(g)
	case "/sweep":
		sum := s.RunSweepNow()
		if s.Notifier != nil && (sum.Moved > 0 || sum.Failed > 0) {
			return ""
		}
		return notifier.FormatSweep(sum.Moved, sum.Skipped, sum.Failed)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, notifier.Report(text), 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
