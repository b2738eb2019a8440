package signup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scholarship-portal/internal/metrics"

	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	validator *Validator
	registrar Registrar
	backend   string
	clock     Clock
	hashCost  int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

// WithClock overrides time.Now, used for age derivation and timestamps.
func WithClock(clock Clock) Option {
	return func(s *Service) { s.clock = clock }
}

// WithHashCost overrides the bcrypt cost of the password hash.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// WithBackendName labels registrar metrics.
func WithBackendName(name string) Option {
	return func(s *Service) { s.backend = name }
}

func NewService(validator *Validator, registrar Registrar, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		validator: validator,
		registrar: registrar,
		backend:   "log",
		clock:     time.Now,
		hashCost:  bcrypt.DefaultCost,
		logger:    logger,
		metrics:   m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now is the service clock.
func (s *Service) Now() time.Time {
	return s.clock()
}

// AgeFor derives the age for a raw date of birth as of today.
func (s *Service) AgeFor(raw string) (int, error) {
	birth, err := ParseDateOfBirth(raw)
	if err != nil {
		return 0, err
	}
	return AgeOn(birth, s.clock()), nil
}

// Submit runs the validation gate and, when it passes, hands the draft to the
// registrar. A refused or failed attempt leaves the draft untouched. On
// success the draft is cleared and the registration returned.
//
// A second Submit while one is outstanding fails with ErrSubmissionInProgress.
// If ctx ends while the registrar is failing, the attempt is abandoned and the
// workflow returns to Idle.
func (s *Service) Submit(ctx context.Context, sess *Session) (*Registration, error) {
	s.metrics.RecordSignupAttempt(ctx)

	sess.mu.Lock()
	if err := sess.workflow.CanBegin(); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	if err := s.validator.Validate(&sess.draft); err != nil {
		sess.mu.Unlock()
		s.metrics.RecordValidationFailure(ctx, Rule(err))
		s.logger.InfoContext(ctx, "signup validation failed", "session", sess.ID, "rule", Rule(err))
		return nil, err
	}
	if err := sess.workflow.Begin(); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	draft := sess.draft
	sess.mu.Unlock()

	reg, err := s.register(ctx, draft)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			sess.workflow.Abandon()
			s.logger.WarnContext(ctx, "signup abandoned", "session", sess.ID, "error", err)
			return nil, ctxErr
		}
		sess.workflow.Fail(err)
		s.logger.WarnContext(ctx, "signup failed", "session", sess.ID, "error", err)
		return nil, &SubmissionError{Err: err}
	}

	sess.workflow.Succeed()
	sess.draft.Reset()
	s.logger.InfoContext(ctx, "signup submitted", "session", sess.ID, "registration", reg)
	return reg, nil
}

func (s *Service) register(ctx context.Context, draft Draft) (*Registration, error) {
	reg, att, err := NewRegistration(draft, s.clock(), s.hashCost)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = s.safeRegister(ctx, reg, att)
	s.metrics.RecordRegistration(ctx, s.backend, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

var errRegistrarPanic = errors.New("registration backend panicked")

// safeRegister turns a registrar panic into a failed submission so the
// session never stays stuck in Submitting.
func (s *Service) safeRegister(ctx context.Context, reg *Registration, att *Attachment) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "registrar panic", "panic", r)
			err = errRegistrarPanic
		}
	}()
	return s.registrar.Register(ctx, reg, att)
}
