package recommendation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/onnwee/singme/internal/tracing"
)

const (
	tableRecommendations = "recommendations"

	// pqUniqueViolation is the SQLSTATE for unique_violation.
	pqUniqueViolation = "23505"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores rec and writes the generated id and created_at back to it.
func (r *PostgresRepository) Insert(ctx context.Context, rec *Recommendation) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tableRecommendations, tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO recommendations (name, link, score)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err = r.db.QueryRowContext(ctx, query, rec.Name, rec.Link, rec.Score).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to insert recommendation: %w", err)
	}
	return nil
}

// GetByID retrieves a recommendation by id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (rec *Recommendation, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tableRecommendations, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT id, name, link, score, created_at FROM recommendations WHERE id = $1`
	rec, err = scanRecommendation(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation %d: %w", id, err)
	}
	return rec, nil
}

// GetByName retrieves a recommendation by its unique name.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (rec *Recommendation, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tableRecommendations, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT id, name, link, score, created_at FROM recommendations WHERE name = $1`
	rec, err = scanRecommendation(r.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation by name: %w", err)
	}
	return rec, nil
}

// UpdateScore sets the score of a recommendation.
func (r *PostgresRepository) UpdateScore(ctx context.Context, id int64, score int) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tableRecommendations, tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	res, err := r.db.ExecContext(ctx, `UPDATE recommendations SET score = $2 WHERE id = $1`, id, score)
	if err != nil {
		return fmt.Errorf("failed to update score of %d: %w", id, err)
	}
	return requireAffected(res)
}

// Delete removes a recommendation.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tableRecommendations, tracing.DBOperationDelete)
	defer func() { endSpan(err) }()

	res, err := r.db.ExecContext(ctx, `DELETE FROM recommendations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recommendation %d: %w", id, err)
	}
	return requireAffected(res)
}

// ListRecent returns up to limit recommendations ordered by id descending.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*Recommendation, error) {
	return r.query(ctx, `
		SELECT id, name, link, score, created_at FROM recommendations
		ORDER BY id DESC
		LIMIT $1
	`, limit)
}

// ListByScoreDesc returns up to limit recommendations ordered by score descending, id ascending.
func (r *PostgresRepository) ListByScoreDesc(ctx context.Context, limit int) ([]*Recommendation, error) {
	return r.query(ctx, `
		SELECT id, name, link, score, created_at FROM recommendations
		ORDER BY score DESC, id ASC
		LIMIT $1
	`, limit)
}

// Count returns the number of stored recommendations.
func (r *PostgresRepository) Count(ctx context.Context) (n int, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tableRecommendations, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recommendations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count recommendations: %w", err)
	}
	return n, nil
}

// ListAll returns every recommendation ordered by id ascending.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Recommendation, error) {
	return r.query(ctx, `SELECT id, name, link, score, created_at FROM recommendations ORDER BY id ASC`)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) (out []*Recommendation, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, tableRecommendations, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			r.logger.Warn("failed to close rows", slog.String("error", cerr.Error()))
		}
	}()

	out = make([]*Recommendation, 0)
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		out = append(out, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recommendations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecommendation(row rowScanner) (*Recommendation, error) {
	var rec Recommendation
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Link, &rec.Score, &rec.CreatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
