package recommendation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository is the persistence boundary for recommendations.
// Implementations return copies; callers never alias stored state.
type Repository interface {
	// Insert stores rec, assigning ID and CreatedAt.
	// Returns ErrDuplicateName if the name is taken.
	Insert(ctx context.Context, rec *Recommendation) error

	// GetByID returns ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id int64) (*Recommendation, error)

	// GetByName returns ErrNotFound for unknown names.
	GetByName(ctx context.Context, name string) (*Recommendation, error)

	// UpdateScore sets the score of id. Returns ErrNotFound for unknown ids.
	UpdateScore(ctx context.Context, id int64, score int) error

	// Delete removes id. Returns ErrNotFound for unknown ids.
	Delete(ctx context.Context, id int64) error

	// ListRecent returns up to limit recommendations, newest first.
	ListRecent(ctx context.Context, limit int) ([]*Recommendation, error)

	// ListByScoreDesc returns up to limit recommendations ordered by score
	// descending, then id ascending.
	ListByScoreDesc(ctx context.Context, limit int) ([]*Recommendation, error)

	// Count returns the number of stored recommendations.
	Count(ctx context.Context) (int, error)

	// ListAll returns every stored recommendation.
	ListAll(ctx context.Context) ([]*Recommendation, error)
}

// InMemoryRepository implements Repository with in-memory storage.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byID   map[int64]*Recommendation
	byName map[string]int64
	nextID int64
	now    func() time.Time
}

// NewInMemoryRepository creates a new in-memory recommendation repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[int64]*Recommendation),
		byName: make(map[string]int64),
		nextID: 1,
		now:    time.Now,
	}
}

// Insert stores a copy of rec and writes the assigned ID and CreatedAt back to rec.
func (r *InMemoryRepository) Insert(ctx context.Context, rec *Recommendation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[rec.Name]; exists {
		return ErrDuplicateName
	}

	rec.ID = r.nextID
	r.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}

	r.byID[rec.ID] = rec.clone()
	r.byName[rec.Name] = rec.ID
	return nil
}

// GetByID retrieves a recommendation by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Recommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.clone(), nil
}

// GetByName retrieves a recommendation by its unique name.
func (r *InMemoryRepository) GetByName(ctx context.Context, name string) (*Recommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	return r.byID[id].clone(), nil
}

// UpdateScore sets the score of a recommendation.
func (r *InMemoryRepository) UpdateScore(ctx context.Context, id int64, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	rec.Score = score
	return nil
}

// Delete removes a recommendation.
func (r *InMemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byName, rec.Name)
	delete(r.byID, id)
	return nil
}

// ListRecent returns up to limit recommendations ordered by id descending.
func (r *InMemoryRepository) ListRecent(ctx context.Context, limit int) ([]*Recommendation, error) {
	return r.list(limit, func(a, b *Recommendation) bool {
		return a.ID > b.ID
	}), nil
}

// ListByScoreDesc returns up to limit recommendations ordered by score descending, id ascending.
func (r *InMemoryRepository) ListByScoreDesc(ctx context.Context, limit int) ([]*Recommendation, error) {
	return r.list(limit, func(a, b *Recommendation) bool {
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ID < b.ID
	}), nil
}

// Count returns the number of stored recommendations.
func (r *InMemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

// ListAll returns every recommendation ordered by id ascending.
func (r *InMemoryRepository) ListAll(ctx context.Context) ([]*Recommendation, error) {
	return r.list(0, func(a, b *Recommendation) bool {
		return a.ID < b.ID
	}), nil
}

// list copies, sorts and truncates the stored set. limit <= 0 means no limit.
func (r *InMemoryRepository) list(limit int, less func(a, b *Recommendation) bool) []*Recommendation {
	r.mu.RLock()
	out := make([]*Recommendation, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, rec.clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return less(out[i], out[j])
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
