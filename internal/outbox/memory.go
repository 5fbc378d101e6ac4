package outbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used by tests and local
// development. Now is swappable so tests control timestamps.
type MemoryRepository struct {
	Now func() time.Time

	mu     sync.Mutex
	txMu   sync.Mutex
	nextID uint64
	msgs   map[uint64]*Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		Now:    time.Now,
		nextID: 1,
		msgs:   make(map[uint64]*Message),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (m *MemoryRepository) Create(_ context.Context, req CreateRequest) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	now := m.Now()
	msg := &Message{
		ID:          m.nextID,
		Recipient:   req.Recipient,
		Subject:     req.Subject,
		Body:        req.Body,
		HTMLBody:    req.HTMLBody,
		Status:      StatusPending,
		RetryCount:  0,
		MaxRetries:  maxRetries,
		ScheduledAt: req.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.nextID++
	m.msgs[msg.ID] = msg

	cp := *msg
	return &cp, nil
}

func (m *MemoryRepository) Get(_ context.Context, id uint64) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.msgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *MemoryRepository) GetLocked(ctx context.Context, id uint64) (*Message, error) {
	return m.Get(ctx, id)
}

func (m *MemoryRepository) List(_ context.Context, f ListFilter) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Message
	for _, msg := range m.msgs {
		if f.Status != nil && msg.Status != *f.Status {
			continue
		}
		out = append(out, *msg)
	}

	asc := f.Order == "asc"
	sort.Slice(out, func(i, j int) bool {
		// id breaks timestamp ties so ordering stays deterministic
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			if asc {
				return out[i].ID < out[j].ID
			}
			return out[i].ID > out[j].ID
		}
		if asc {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) Update(_ context.Context, id uint64, fields map[string]any) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.msgs[id]
	if !ok {
		return nil, ErrNotFound
	}

	for k, v := range fields {
		if err := applyField(msg, k, v); err != nil {
			return nil, err
		}
	}
	msg.UpdatedAt = m.Now()

	cp := *msg
	return &cp, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.msgs[id]; !ok {
		return 0, ErrNotFound
	}
	delete(m.msgs, id)
	return id, nil
}

func (m *MemoryRepository) GetPending(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	st := StatusPending
	return m.List(ctx, ListFilter{Status: &st, Limit: limit, Order: "asc"})
}

func (m *MemoryRepository) GetFailed(ctx context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Message
	for _, msg := range m.msgs {
		if msg.Status == StatusFailed {
			out = append(out, *msg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) CountByStatus(_ context.Context, status Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, msg := range m.msgs {
		if msg.Status == status {
			n++
		}
	}
	return n, nil
}

// Transaction serializes callers; the state mutex stays free so fn can use
// the repository's own methods.
func (m *MemoryRepository) Transaction(_ context.Context, fn func(Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}

func applyField(msg *Message, key string, v any) error {
	switch key {
	case "status":
		switch s := v.(type) {
		case Status:
			msg.Status = s
		case string:
			msg.Status = Status(s)
		default:
			return fmt.Errorf("bad type for status: %T", v)
		}
	case "retry_count":
		n, err := toInt(v)
		if err != nil {
			return fmt.Errorf("bad type for retry_count: %T", v)
		}
		msg.RetryCount = n
	case "max_retries":
		n, err := toInt(v)
		if err != nil {
			return fmt.Errorf("bad type for max_retries: %T", v)
		}
		msg.MaxRetries = n
	case "last_error":
		switch s := v.(type) {
		case nil:
			msg.LastError = nil
		case string:
			msg.LastError = &s
		case *string:
			msg.LastError = s
		default:
			return fmt.Errorf("bad type for last_error: %T", v)
		}
	case "sent_at":
		switch t := v.(type) {
		case nil:
			msg.SentAt = nil
		case time.Time:
			msg.SentAt = &t
		case *time.Time:
			msg.SentAt = t
		default:
			return fmt.Errorf("bad type for sent_at: %T", v)
		}
	case "scheduled_at":
		switch t := v.(type) {
		case nil:
			msg.ScheduledAt = nil
		case time.Time:
			msg.ScheduledAt = &t
		case *time.Time:
			msg.ScheduledAt = t
		default:
			return fmt.Errorf("bad type for scheduled_at: %T", v)
		}
	default:
		return fmt.Errorf("unknown field %q", key)
	}
	return nil
}

// toInt tolerates json.Decode handing numbers over as float64.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("not a number: %T", v)
}
