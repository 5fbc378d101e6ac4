package outbox

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the narrow persistence contract the service depends on.
// Any store with equality filters, ordering and limit/offset satisfies it.
type Repository interface {
	Create(ctx context.Context, req CreateRequest) (*Message, error)
	Get(ctx context.Context, id uint64) (*Message, error)
	// GetLocked behaves like Get but holds a row lock for the duration of
	// the enclosing Transaction.
	GetLocked(ctx context.Context, id uint64) (*Message, error)
	List(ctx context.Context, f ListFilter) ([]Message, error)
	Update(ctx context.Context, id uint64, fields map[string]any) (*Message, error)
	Delete(ctx context.Context, id uint64) (uint64, error)
	GetPending(ctx context.Context, limit int) ([]Message, error)
	GetFailed(ctx context.Context, limit int) ([]Message, error)
	CountByStatus(ctx context.Context, status Status) (int64, error)
	Transaction(ctx context.Context, fn func(Repository) error) error
}

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

var _ Repository = (*GormRepository)(nil)

func (r *GormRepository) Create(ctx context.Context, req CreateRequest) (*Message, error) {
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	msg := Message{
		Recipient:   req.Recipient,
		Subject:     req.Subject,
		Body:        req.Body,
		HTMLBody:    req.HTMLBody,
		Status:      StatusPending,
		RetryCount:  0,
		MaxRetries:  maxRetries,
		ScheduledAt: req.ScheduledAt,
	}
	if err := r.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *GormRepository) Get(ctx context.Context, id uint64) (*Message, error) {
	var msg Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (r *GormRepository) GetLocked(ctx context.Context, id uint64) (*Message, error) {
	var msg Message
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&msg, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (r *GormRepository) List(ctx context.Context, f ListFilter) ([]Message, error) {
	q := r.db.WithContext(ctx).Model(&Message{})

	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	order := "created_at desc"
	if f.Order == "asc" {
		order = "created_at asc"
	}
	q = q.Order(order)

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var out []Message
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepository) Update(ctx context.Context, id uint64, fields map[string]any) (*Message, error) {
	tx := r.db.WithContext(ctx).Model(&Message{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *GormRepository) Delete(ctx context.Context, id uint64) (uint64, error) {
	tx := r.db.WithContext(ctx).Delete(&Message{}, id)
	if tx.Error != nil {
		return 0, tx.Error
	}
	if tx.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return id, nil
}

// GetPending returns the oldest pending messages first to approximate FIFO.
func (r *GormRepository) GetPending(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	var out []Message
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetFailed returns the most recent failures first; operators inspecting
// failures care about the newest incidents.
func (r *GormRepository) GetFailed(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	var out []Message
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusFailed).
		Order("updated_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepository) CountByStatus(ctx context.Context, status Status) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&Message{}).
		Where("status = ?", status).
		Count(&n).Error
	return n, err
}

func (r *GormRepository) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepository(tx))
	})
}
