package recommendation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/singme/internal/lock"
	"github.com/onnwee/singme/internal/ranking"
	"github.com/onnwee/singme/internal/tracing"
	"github.com/onnwee/singme/internal/validate"
)

// SubmitInput is a new recommendation as supplied by a client.
type SubmitInput struct {
	Name string `json:"name" validate:"required,max=200"`
	Link string `json:"link" validate:"required,medialink"`
}

// ServiceConfig holds the collaborators of a Service.
type ServiceConfig struct {
	Repository Repository
	Locker     lock.Locker // Default: in-process KeyedMutex

	Calibration ranking.Calibration // Default: ranking.DefaultCalibration()

	// Source drives the weighted draw and must be safe for concurrent use.
	// Default: ranking.GlobalSource()
	Source ranking.Source

	Metrics *Metrics // Optional
	Logger  *slog.Logger
}

// Service implements recommendation submission, voting and retrieval.
// It holds no state between calls; the repository is the source of truth.
type Service struct {
	repo        Repository
	locker      lock.Locker
	calibration ranking.Calibration
	source      ranking.Source
	metrics     *Metrics
	logger      *slog.Logger
	timeNow     func() time.Time
}

// NewService creates a Service. Repository is required.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if cfg.Locker == nil {
		cfg.Locker = lock.NewKeyedMutex()
	}
	if cfg.Calibration == (ranking.Calibration{}) {
		cfg.Calibration = ranking.DefaultCalibration()
	}
	if err := cfg.Calibration.Validate(); err != nil {
		return nil, err
	}
	if cfg.Source == nil {
		cfg.Source = ranking.GlobalSource()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		repo:        cfg.Repository,
		locker:      cfg.Locker,
		calibration: cfg.Calibration,
		source:      cfg.Source,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		timeNow:     time.Now,
	}, nil
}

// Submit validates and stores a new recommendation with score 0.
// Returns an error wrapping ErrValidation for malformed input, or
// ErrDuplicateName when the name is taken.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (rec *Recommendation, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "recommendation.submit")
	defer func() { endSpan(err) }()

	name, link, err := normalizeInput(in)
	if err != nil {
		s.metrics.ObserveSubmission(SubmissionInvalid)
		return nil, err
	}

	rec = &Recommendation{Name: name, Link: link, Score: 0}
	if err := s.repo.Insert(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			s.metrics.ObserveSubmission(SubmissionConflict)
			return nil, err
		}
		return nil, fmt.Errorf("failed to store recommendation: %w", err)
	}

	s.metrics.ObserveSubmission(SubmissionCreated)
	s.logger.InfoContext(ctx, "recommendation created",
		slog.Int64("recommendation_id", rec.ID),
		slog.String("name", rec.Name))

	return rec, nil
}

// normalizeInput trims both fields before any rule runs, so length limits
// apply to the stored values.
func normalizeInput(in SubmitInput) (string, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Link = strings.TrimSpace(in.Link)
	if err := validate.Struct(in); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	name, err := validate.RecommendationName(in.Name)
	if err != nil {
		return "", "", fmt.Errorf("%w: name: %w", ErrValidation, err)
	}
	link, err := validate.MediaLink(in.Link)
	if err != nil {
		return "", "", fmt.Errorf("%w: link: %w", ErrValidation, err)
	}
	return name, link, nil
}

// Upvote adds one point to a recommendation.
func (s *Service) Upvote(ctx context.Context, id int64) error {
	return s.Vote(ctx, id, ranking.Up)
}

// Downvote removes one point from a recommendation, deleting it when the
// score falls below ranking.ScoreFloor.
func (s *Service) Downvote(ctx context.Context, id int64) error {
	return s.Vote(ctx, id, ranking.Down)
}

// Vote applies one vote. The read-modify-write runs under a lock keyed by id,
// so concurrent votes on the same recommendation are never lost while votes on
// different recommendations proceed in parallel. A vote that deletes the
// recommendation is a success. Returns ErrNotFound for unknown ids.
func (s *Service) Vote(ctx context.Context, id int64, dir ranking.Direction) (err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "recommendation.vote")
	defer func() { endSpan(err) }()
	tracing.SetAttributes(ctx,
		attribute.Int64("recommendation.id", id),
		attribute.String("vote.direction", dir.String()))

	if dir != ranking.Up && dir != ranking.Down {
		return fmt.Errorf("%w: unknown vote direction %d", ErrValidation, dir)
	}

	waitStart := s.timeNow()
	unlock, err := s.locker.Lock(ctx, LockKey(id))
	if err != nil {
		return fmt.Errorf("failed to acquire vote lock for %d: %w", id, err)
	}
	defer unlock()
	s.metrics.ObserveLockWait(s.timeNow().Sub(waitStart).Seconds())

	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	newScore, shouldDelete := ranking.ApplyVote(rec.Score, dir)
	if shouldDelete {
		if err := s.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete recommendation %d: %w", id, err)
		}
		s.metrics.IncCulled()
		tracing.AddEvent(ctx, "recommendation.culled",
			attribute.Int64("recommendation.id", id),
			attribute.Int("score", newScore))
		s.logger.InfoContext(ctx, "recommendation removed after falling below score floor",
			slog.Int64("recommendation_id", id),
			slog.Int("score", newScore))
	} else if err := s.repo.UpdateScore(ctx, id, newScore); err != nil {
		return fmt.Errorf("failed to update score of %d: %w", id, err)
	}

	s.metrics.ObserveVote(dir)
	return nil
}

// LockKey is the lock key guarding votes on one recommendation.
func LockKey(id int64) string {
	return "recommendation:" + strconv.FormatInt(id, 10)
}

// Recent returns up to RecentLimit recommendations, newest first.
func (s *Service) Recent(ctx context.Context) (recs []*Recommendation, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "recommendation.recent")
	defer func() { endSpan(err) }()

	return s.repo.ListRecent(ctx, RecentLimit)
}

// Get returns one recommendation or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (rec *Recommendation, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "recommendation.get")
	defer func() { endSpan(err) }()

	return s.repo.GetByID(ctx, id)
}

// Top returns up to amount recommendations by score descending, ties broken
// by id ascending. amount must be positive.
func (s *Service) Top(ctx context.Context, amount int) (out []*Recommendation, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "recommendation.top")
	defer func() { endSpan(err) }()

	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive integer", ErrValidation)
	}

	recs, err := s.repo.ListByScoreDesc(ctx, amount)
	if err != nil {
		return nil, err
	}

	byID := indexByID(recs)
	ranked := ranking.Top(candidatesOf(recs), amount)
	out = make([]*Recommendation, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, byID[c.ID])
	}
	return out, nil
}

// Random returns one recommendation chosen by the weighted two-band draw.
// Returns ErrNotFound when there are no recommendations.
func (s *Service) Random(ctx context.Context) (rec *Recommendation, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "recommendation.random")
	defer func() { endSpan(err) }()

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	picked, band, err := ranking.WeightedDraw(candidatesOf(all), s.calibration, s.source)
	if errors.Is(err, ranking.ErrEmptyPool) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveDraw(band)
	tracing.SetAttributes(ctx,
		attribute.String("selection.band", string(band)),
		attribute.Int("selection.pool_size", len(all)))

	return indexByID(all)[picked.ID], nil
}

func candidatesOf(recs []*Recommendation) []ranking.Candidate {
	out := make([]ranking.Candidate, len(recs))
	for i, r := range recs {
		out[i] = ranking.Candidate{ID: r.ID, Score: r.Score}
	}
	return out
}

func indexByID(recs []*Recommendation) map[int64]*Recommendation {
	m := make(map[int64]*Recommendation, len(recs))
	for _, r := range recs {
		m[r.ID] = r
	}
	return m
}
