// Package validator executes validation check plans against the reference
// store.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/villagelookup/internal/core/domain"
	"github.com/artpar/villagelookup/internal/core/validation"
	"github.com/artpar/villagelookup/internal/shell/metrics"
	"golang.org/x/sync/errgroup"
)

// Defaults for Config.
const (
	DefaultMaxConcurrentChecks = 8
	DefaultQueryTimeout        = 10 * time.Second
)

// ReferenceChecker answers the membership questions a check plan asks.
// store.Store satisfies it.
type ReferenceChecker interface {
	WardInTownship(ctx context.Context, townshipCode, wardCode string) (bool, error)
	VillageInTownship(ctx context.Context, townshipCode, villageCode string) (bool, error)
	ClassificationCodeExists(ctx context.Context, code string) (bool, error)
}

// Config bounds a validation run.
type Config struct {
	// MaxConcurrentChecks caps in-flight reference lookups per run.
	MaxConcurrentChecks int

	// QueryTimeout bounds a whole validation run. Zero disables it.
	QueryTimeout time.Duration
}

// DefaultConfig returns the default bounds.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentChecks: DefaultMaxConcurrentChecks,
		QueryTimeout:        DefaultQueryTimeout,
	}
}

// Validator runs the checks planned for events and folds the outcomes into
// ordered validation errors.
type Validator struct {
	checker ReferenceChecker
	catalog validation.Catalog
	config  Config
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithMetrics records check latency and validation errors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) {
		v.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// New creates a Validator.
func New(checker ReferenceChecker, catalog validation.Catalog, cfg Config, opts ...Option) *Validator {
	if cfg.MaxConcurrentChecks <= 0 {
		cfg.MaxConcurrentChecks = DefaultMaxConcurrentChecks
	}
	v := &Validator{
		checker: checker,
		catalog: catalog,
		config:  cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Catalog returns the field catalog the validator plans with.
func (v *Validator) Catalog() validation.Catalog {
	return v.catalog
}

// ValidateEvent validates one event: at most one hierarchy error first, then
// classification errors in catalog order.
func (v *Validator) ValidateEvent(ctx context.Context, eventID string, values []domain.DataValue) ([]domain.ValidationError, error) {
	return v.execute(ctx, validation.PlanEvent(v.catalog, eventID, values))
}

// ValidateSubmission validates events in order and concatenates their errors.
// Any lookup failure aborts the run; partial results are never returned.
func (v *Validator) ValidateSubmission(ctx context.Context, events []domain.Event) ([]domain.ValidationError, error) {
	return v.execute(ctx, validation.PlanEvents(v.catalog, events))
}

func (v *Validator) execute(ctx context.Context, checks []validation.Check) ([]domain.ValidationError, error) {
	if len(checks) == 0 {
		return nil, nil
	}

	if v.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.config.QueryTimeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.config.MaxConcurrentChecks)

	// Each goroutine writes only its own slot.
	passed := make([]bool, len(checks))

	for i, c := range checks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := v.run(gctx, c)
			if err != nil {
				return fmt.Errorf("%s check for event %q: %w", c.Kind, c.Event, err)
			}
			passed[i] = ok
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		v.logger.ErrorContext(ctx, "reference check failed",
			"checks", len(checks),
			"error", err,
		)
		return nil, err
	}

	errs := validation.Failures(checks, passed)
	for _, e := range errs {
		v.metrics.IncrementValidationError(e.Field)
	}
	return errs, nil
}

func (v *Validator) run(ctx context.Context, c validation.Check) (bool, error) {
	start := time.Now()
	defer func() {
		v.metrics.ObserveCheckLatency(c.Kind.String(), time.Since(start))
	}()

	switch c.Kind {
	case validation.CheckWard:
		return v.checker.WardInTownship(ctx, c.Township, c.Code)
	case validation.CheckVillage:
		return v.checker.VillageInTownship(ctx, c.Township, c.Code)
	case validation.CheckClassification:
		return v.checker.ClassificationCodeExists(ctx, c.Code)
	default:
		return false, fmt.Errorf("unknown check kind %d", c.Kind)
	}
}
