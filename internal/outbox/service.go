package outbox

import (
	"context"
	"log/slog"
	"time"
)

// SentRecorder mirrors successful sends into a side cache. Optional.
type SentRecorder interface {
	StoreSent(ctx context.Context, id uint64, recipient string, sentAt time.Time) error
}

// Service owns the pending -> sent / pending -> failed state machine and the
// resend policy. Retries here are a business-level decision about re-sending
// the email, never a technical retry of a store call.
type Service struct {
	repo     Repository
	now      func() time.Time
	recorder SentRecorder
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock overrides wall-clock time, for deterministic tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) WithSentRecorder(r SentRecorder) *Service {
	s.recorder = r
	return s
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, req)
}

func (s *Service) Get(ctx context.Context, id uint64) (*Message, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Message, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Update(ctx context.Context, id uint64, fields map[string]any) (*Message, error) {
	return s.repo.Update(ctx, id, fields)
}

func (s *Service) Delete(ctx context.Context, id uint64) (uint64, error) {
	return s.repo.Delete(ctx, id)
}

// MarkAsSent stamps the message sent. Calling it twice only re-stamps
// sent_at.
func (s *Service) MarkAsSent(ctx context.Context, id uint64) (*Message, error) {
	sentAt := s.now()
	msg, err := s.repo.Update(ctx, id, map[string]any{
		"status":  StatusSent,
		"sent_at": sentAt,
	})
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		if err := s.recorder.StoreSent(ctx, msg.ID, msg.Recipient, sentAt); err != nil {
			slog.Warn("sent-mail cache write failed", "id", msg.ID, "error", err)
		}
	}
	return msg, nil
}

// MarkAsFailed records a delivery failure. While the incremented counter
// stays strictly below max_retries the message returns to the pending pool
// with no backoff; otherwise it is parked as failed until an operator
// intervenes. The read and write run in one transaction under a row lock so
// concurrent failure reports cannot miscount.
func (s *Service) MarkAsFailed(ctx context.Context, id uint64, errMsg string) (*Message, error) {
	var out *Message
	err := s.repo.Transaction(ctx, func(r Repository) error {
		msg, err := r.GetLocked(ctx, id)
		if err != nil {
			return err
		}

		newRetry := msg.RetryCount + 1
		status := StatusFailed
		if newRetry < msg.MaxRetries {
			status = StatusPending
		}

		out, err = r.Update(ctx, id, map[string]any{
			"status":      status,
			"retry_count": newRetry,
			"last_error":  errMsg,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RetryOne is the manual override: it resets any message to a fresh pending
// state, ignoring max_retries, and can resurrect a terminally failed one.
func (s *Service) RetryOne(ctx context.Context, id uint64) (*Message, error) {
	return s.repo.Update(ctx, id, map[string]any{
		"status":      StatusPending,
		"retry_count": 0,
		"last_error":  nil,
	})
}

// RetryAllRecoverable resets every recently failed message still under its
// retry ceiling. Per-message errors are skipped, not fatal; only the reset
// subset is returned.
func (s *Service) RetryAllRecoverable(ctx context.Context) ([]Message, error) {
	failed, err := s.repo.GetFailed(ctx, retryScanLimit)
	if err != nil {
		return nil, err
	}

	reset := make([]Message, 0, len(failed))
	for _, msg := range failed {
		if msg.RetryCount >= msg.MaxRetries {
			continue
		}
		updated, err := s.RetryOne(ctx, msg.ID)
		if err != nil {
			slog.Warn("bulk retry skipped message", "id", msg.ID, "error", err)
			continue
		}
		reset = append(reset, *updated)
	}
	return reset, nil
}

func (s *Service) GetNextBatch(ctx context.Context, limit int) ([]Message, error) {
	return s.repo.GetPending(ctx, limit)
}

func (s *Service) GetPending(ctx context.Context, limit int) ([]Message, error) {
	return s.repo.GetPending(ctx, limit)
}

func (s *Service) GetFailed(ctx context.Context, limit int) ([]Message, error) {
	return s.repo.GetFailed(ctx, limit)
}

// Queue enqueues a plain email with default retry settings. It exists so
// other services can hand mail to the outbox without building a full
// CreateRequest themselves.
func (s *Service) Queue(ctx context.Context, recipient, subject, body string) error {
	_, err := s.Create(ctx, CreateRequest{
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
	return err
}

func (s *Service) GetQueueStats(ctx context.Context) (*QueueStats, error) {
	pending, err := s.repo.CountByStatus(ctx, StatusPending)
	if err != nil {
		return nil, err
	}
	sent, err := s.repo.CountByStatus(ctx, StatusSent)
	if err != nil {
		return nil, err
	}
	failed, err := s.repo.CountByStatus(ctx, StatusFailed)
	if err != nil {
		return nil, err
	}

	return &QueueStats{
		PendingCount: pending,
		SentCount:    sent,
		FailedCount:  failed,
	}, nil
}
