// Package pipeline sequences plan, draft, evaluation and recording for each request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/musigent/internal/ledger"
	"github.com/yourorg/musigent/internal/logging"
	"github.com/yourorg/musigent/internal/metrics"
	"github.com/yourorg/musigent/internal/planner"
	"github.com/yourorg/musigent/pkg/types"
)

// AnonymousUser is recorded when a request carries no username.
const AnonymousUser = "anonymous"

// Pipeline stages.
const (
	StagePlan     = "plan"
	StageDraft    = "draft"
	StageEvaluate = "evaluate"
	StageRecord   = "record"
)

// Composer produces a draft for a plan.
type Composer interface {
	Compose(ctx context.Context, username string, plan types.GenerationPlan) types.Draft
}

// Evaluator produces the quality verdict for a draft.
type Evaluator interface {
	Evaluate(ctx context.Context, draft types.Draft) types.QualityVerdict
}

// Clock supplies the time info attached to responses.
type Clock interface {
	Now(ctx context.Context) types.TimeInfo
}

// Limits is the jingle usage policy.
type Limits struct {
	PerWindow int
	PerDay    int
	Window    time.Duration
}

// DefaultLimits allows five jingles per minute and five per UTC day.
var DefaultLimits = Limits{PerWindow: 5, PerDay: 5, Window: time.Minute}

// ProgressFunc reports stage transitions.
type ProgressFunc func(stage string)

type Deps struct {
	Composer Composer
	Gate     Evaluator
	Ledger   ledger.Store
	// Days is the per-user day counter, shared with the ledger.
	Days     *ledger.DayCounter
	Time     Clock
	Metrics  *metrics.Metrics
	Logger   logrus.FieldLogger
	Progress ProgressFunc
}

type Pipeline struct {
	composer Composer
	gate     Evaluator
	ledger   ledger.Store
	days     *ledger.DayCounter
	clock    Clock
	metrics  *metrics.Metrics
	logger   logrus.FieldLogger
	progress ProgressFunc
	limits   Limits
	locks    *userLocks
}

func New(d Deps, limits Limits) (*Pipeline, error) {
	if d.Composer == nil || d.Gate == nil || d.Ledger == nil {
		return nil, errors.New("pipeline: composer, gate and ledger are required")
	}
	if d.Days == nil {
		return nil, errors.New("pipeline: day counter is required")
	}
	if limits.Window <= 0 {
		limits.Window = DefaultLimits.Window
	}
	if limits.PerWindow <= 0 {
		limits.PerWindow = DefaultLimits.PerWindow
	}
	if limits.PerDay <= 0 {
		limits.PerDay = DefaultLimits.PerDay
	}
	return &Pipeline{
		composer: d.Composer,
		gate:     d.Gate,
		ledger:   d.Ledger,
		days:     d.Days,
		clock:    d.Time,
		metrics:  d.Metrics,
		logger:   logging.OrDiscard(d.Logger),
		progress: d.Progress,
		limits:   limits,
		locks:    newUserLocks(),
	}, nil
}

// Generate runs a generic request. It is never throttled.
func (p *Pipeline) Generate(ctx context.Context, username string, mode types.Mode, prompt string, durationSec int) (types.Result, error) {
	username = normalizeUser(username)
	unlock := p.locks.lock(username)
	defer unlock()

	p.report(StagePlan)
	start := time.Now()
	plan := planner.Plan(mode, prompt, durationSec)
	p.metrics.ObserveStage(StagePlan, time.Since(start))

	res, err := p.run(ctx, username, plan, false)
	p.metrics.RecordRequest("generate", outcome(err))
	return res, err
}

// Jingle runs a jingle survey request. The usage policy is checked before planning;
// a refusal returns a *ThrottleError and performs no generation or evaluation.
func (p *Pipeline) Jingle(ctx context.Context, username string, survey types.JingleSurvey) (types.Result, error) {
	username = normalizeUser(username)
	unlock := p.locks.lock(username)
	defer unlock()

	if err := p.checkThrottle(username); err != nil {
		var te *ThrottleError
		if errors.As(err, &te) {
			p.metrics.RecordThrottle(te.Limit)
			p.logger.WithFields(logrus.Fields{"username": username, "limit": te.Limit, "count": te.Count}).Info("jingle request throttled")
		}
		p.metrics.RecordRequest("jingle", outcome(err))
		return types.Result{}, err
	}

	p.report(StagePlan)
	start := time.Now()
	plan, err := planner.JinglePlan(survey)
	p.metrics.ObserveStage(StagePlan, time.Since(start))
	if err != nil {
		p.metrics.RecordRequest("jingle", "invalid")
		return types.Result{}, err
	}

	res, err := p.run(ctx, username, plan, true)
	p.metrics.RecordRequest("jingle", outcome(err))
	return res, err
}

func (p *Pipeline) checkThrottle(username string) error {
	recent, err := p.ledger.RollingWindowCount(username, p.limits.Window)
	if err != nil {
		return fmt.Errorf("check rolling window: %w", err)
	}
	if recent >= p.limits.PerWindow {
		return &ThrottleError{Username: username, Limit: LimitRollingWindow, Count: recent, Max: p.limits.PerWindow, Window: p.limits.Window}
	}
	if today := p.ledger.CalendarDayCount(username); today >= p.limits.PerDay {
		return &ThrottleError{Username: username, Limit: LimitDaily, Count: today, Max: p.limits.PerDay}
	}
	return nil
}

// run drafts, evaluates and records plan. Only survey-driven jingle requests
// consume the daily jingle quota; generic requests in jingle mode do not.
func (p *Pipeline) run(ctx context.Context, username string, plan types.GenerationPlan, fromSurvey bool) (types.Result, error) {
	log := p.logger.WithFields(logrus.Fields{"username": username, "mode": plan.Mode})

	p.report(StageDraft)
	start := time.Now()
	draft := p.composer.Compose(ctx, username, plan)
	p.metrics.ObserveStage(StageDraft, time.Since(start))
	log = log.WithField("track_id", draft.TrackID)

	p.report(StageEvaluate)
	start = time.Now()
	verdict := p.gate.Evaluate(ctx, draft)
	p.metrics.ObserveStage(StageEvaluate, time.Since(start))
	p.metrics.RecordVerdict(string(plan.Mode), verdict.Approved, verdict.OriginalityScore)

	var info types.TimeInfo
	if p.clock != nil {
		info = p.clock.Now(ctx)
	}
	result := types.Result{Plan: plan, Draft: draft, Verdict: verdict, TimeInfo: info}

	p.report(StageRecord)
	if fromSurvey {
		p.days.Increment(username)
	}
	start = time.Now()
	err := p.ledger.Append(types.Interaction{
		Username: username,
		Plan:     plan,
		Draft:    draft,
		Verdict:  verdict,
		TimeInfo: info,
	})
	p.metrics.ObserveStage(StageRecord, time.Since(start))
	if err != nil {
		p.metrics.RecordPersistenceFailure()
		log.WithError(err).Error("failed to record interaction")
		return result, fmt.Errorf("record interaction: %w", err)
	}

	log.WithFields(logrus.Fields{"approved": verdict.Approved, "has_audio": draft.HasAudio()}).Info("request completed")
	return result, nil
}

func (p *Pipeline) report(stage string) {
	if p.progress != nil {
		p.progress(stage)
	}
}

func normalizeUser(username string) string {
	username = strings.TrimSpace(username)
	if username == "" {
		return AnonymousUser
	}
	return username
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrThrottled):
		return "throttled"
	case errors.Is(err, ledger.ErrPersistence):
		return "persistence_error"
	default:
		return "error"
	}
}
