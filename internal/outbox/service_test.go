package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *MemoryRepository, *fakeClock) {
	t.Helper()

	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	repo := NewMemoryRepository()
	repo.Now = clock.Now
	svc := NewService(repo).WithClock(clock.Now)
	return svc, repo, clock
}

func mustCreate(t *testing.T, svc *Service, req CreateRequest) *Message {
	t.Helper()

	msg, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	return msg
}

func TestCreate_Defaults(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	msg := mustCreate(t, svc, CreateRequest{
		Recipient: "a@b.com",
		Subject:   "S",
		Body:      "B",
	})

	require.Equal(t, StatusPending, msg.Status)
	require.Equal(t, 0, msg.RetryCount)
	require.Equal(t, DefaultMaxRetries, msg.MaxRetries)
	require.Nil(t, msg.LastError)
	require.Nil(t, msg.SentAt)
	require.True(t, msg.CreatedAt.Equal(clock.Now()))

	got, err := svc.Get(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, msg.Recipient, got.Recipient)
	require.Equal(t, msg.Subject, got.Subject)
	require.Equal(t, msg.Body, got.Body)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{Subject: "s", Body: "b"})
	require.ErrorIs(t, err, ErrMissingRecipient)

	_, err = svc.Create(ctx, CreateRequest{Recipient: "a@b.com", Body: "b"})
	require.ErrorIs(t, err, ErrMissingSubject)

	_, err = svc.Create(ctx, CreateRequest{Recipient: "a@b.com", Subject: "s"})
	require.ErrorIs(t, err, ErrMissingBody)
}

func TestMarkAsFailed_RetryPolicy(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	const maxRetries = 4
	msg := mustCreate(t, svc, CreateRequest{
		Recipient:  "a@b.com",
		Subject:    "S",
		Body:       "B",
		MaxRetries: maxRetries,
	})

	// The first m-1 failures keep the message pending.
	for i := 1; i < maxRetries; i++ {
		got, err := svc.MarkAsFailed(ctx, msg.ID, "boom")
		require.NoError(t, err)
		require.Equal(t, StatusPending, got.Status, "failure %d", i)
		require.Equal(t, i, got.RetryCount)
		require.NotNil(t, got.LastError)
		require.Equal(t, "boom", *got.LastError)
	}

	// The m-th failure exhausts the budget.
	got, err := svc.MarkAsFailed(ctx, msg.ID, "final")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, maxRetries, got.RetryCount)
	require.Equal(t, "final", *got.LastError)
}

func TestMarkAsFailed_Scenario(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	msg := mustCreate(t, svc, CreateRequest{
		Recipient:  "a@b.com",
		Subject:    "S",
		Body:       "B",
		MaxRetries: 2,
	})

	got, err := svc.MarkAsFailed(ctx, msg.ID, "timeout")
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
	require.Equal(t, 1, got.RetryCount)
	require.Equal(t, "timeout", *got.LastError)

	got, err = svc.MarkAsFailed(ctx, msg.ID, "timeout2")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, 2, got.RetryCount)
	require.Equal(t, "timeout2", *got.LastError)
}

func TestMarkAsFailed_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.MarkAsFailed(context.Background(), 999, "x")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkAsSent_StampsSentAt(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	msg := mustCreate(t, svc, CreateRequest{Recipient: "a@b.com", Subject: "S", Body: "B"})

	clock.Advance(5 * time.Minute)

	got, err := svc.MarkAsSent(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	require.False(t, got.SentAt.Before(got.CreatedAt))

	// Idempotent in effect: a second call just re-stamps sent_at.
	clock.Advance(time.Minute)
	again, err := svc.MarkAsSent(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSent, again.Status)
	require.True(t, again.SentAt.After(*got.SentAt))
}

type recordedSend struct {
	id        uint64
	recipient string
	sentAt    time.Time
}

type fakeRecorder struct {
	sends []recordedSend
}

func (f *fakeRecorder) StoreSent(_ context.Context, id uint64, recipient string, sentAt time.Time) error {
	f.sends = append(f.sends, recordedSend{id: id, recipient: recipient, sentAt: sentAt})
	return nil
}

func TestMarkAsSent_NotifiesRecorder(t *testing.T) {
	svc, _, clock := newTestService(t)
	rec := &fakeRecorder{}
	svc.WithSentRecorder(rec)

	msg := mustCreate(t, svc, CreateRequest{Recipient: "a@b.com", Subject: "S", Body: "B"})

	_, err := svc.MarkAsSent(context.Background(), msg.ID)
	require.NoError(t, err)

	require.Len(t, rec.sends, 1)
	require.Equal(t, msg.ID, rec.sends[0].id)
	require.Equal(t, "a@b.com", rec.sends[0].recipient)
	require.True(t, rec.sends[0].sentAt.Equal(clock.Now()))
}

func TestRetryOne_ResetsRegardlessOfState(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	msg := mustCreate(t, svc, CreateRequest{
		Recipient:  "a@b.com",
		Subject:    "S",
		Body:       "B",
		MaxRetries: 1,
	})

	// Exhaust immediately: max_retries=1 fails on the first report.
	got, err := svc.MarkAsFailed(ctx, msg.ID, "dead")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)

	reset, err := svc.RetryOne(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, reset.Status)
	require.Equal(t, 0, reset.RetryCount)
	require.Nil(t, reset.LastError)
}

func TestRetryAllRecoverable(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	// Recoverable: failed with retry_count < max_retries. This happens when
	// an operator bumps a message into failed through the raw update path.
	recoverable := mustCreate(t, svc, CreateRequest{Recipient: "r@b.com", Subject: "S", Body: "B", MaxRetries: 5})
	_, err := svc.Update(ctx, recoverable.ID, map[string]any{"status": StatusFailed, "retry_count": 2})
	require.NoError(t, err)

	clock.Advance(time.Second)

	// Exhausted: at its ceiling, must be left untouched.
	exhausted := mustCreate(t, svc, CreateRequest{Recipient: "x@b.com", Subject: "S", Body: "B", MaxRetries: 2})
	_, err = svc.MarkAsFailed(ctx, exhausted.ID, "a")
	require.NoError(t, err)
	_, err = svc.MarkAsFailed(ctx, exhausted.ID, "b")
	require.NoError(t, err)

	clock.Advance(time.Second)

	// Pending messages are not candidates at all.
	pending := mustCreate(t, svc, CreateRequest{Recipient: "p@b.com", Subject: "S", Body: "B"})

	reset, err := svc.RetryAllRecoverable(ctx)
	require.NoError(t, err)
	require.Len(t, reset, 1)
	require.Equal(t, recoverable.ID, reset[0].ID)
	require.Equal(t, StatusPending, reset[0].Status)
	require.Equal(t, 0, reset[0].RetryCount)
	require.Nil(t, reset[0].LastError)

	still, err := svc.Get(ctx, exhausted.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, still.Status)
	require.Equal(t, 2, still.RetryCount)

	untouched, err := svc.Get(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, 0, untouched.RetryCount)
}

func TestGetPending_OldestFirstAndLimited(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	var ids []uint64
	for i := 0; i < 5; i++ {
		msg := mustCreate(t, svc, CreateRequest{Recipient: "a@b.com", Subject: "S", Body: "B"})
		ids = append(ids, msg.ID)
		clock.Advance(time.Minute)
	}

	// One of them is already sent and must not appear.
	_, err := svc.MarkAsSent(ctx, ids[2])
	require.NoError(t, err)

	batch, err := svc.GetNextBatch(ctx, 3)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for i := 1; i < len(batch); i++ {
		require.False(t, batch[i].CreatedAt.Before(batch[i-1].CreatedAt))
	}
	for _, m := range batch {
		require.Equal(t, StatusPending, m.Status)
	}
	require.Equal(t, ids[0], batch[0].ID)
}

func TestGetFailed_NewestFirst(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	first := mustCreate(t, svc, CreateRequest{Recipient: "a@b.com", Subject: "S", Body: "B", MaxRetries: 1})
	_, err := svc.MarkAsFailed(ctx, first.ID, "boom")
	require.NoError(t, err)

	clock.Advance(time.Hour)

	second := mustCreate(t, svc, CreateRequest{Recipient: "b@b.com", Subject: "S", Body: "B", MaxRetries: 1})
	_, err = svc.MarkAsFailed(ctx, second.ID, "boom")
	require.NoError(t, err)

	failed, err := svc.GetFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	require.Equal(t, second.ID, failed[0].ID)
	require.Equal(t, first.ID, failed[1].ID)
}

func TestGetQueueStats_TrueCounts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// 5 pending, 2 sent, 1 failed.
	for i := 0; i < 5; i++ {
		mustCreate(t, svc, CreateRequest{Recipient: "p@b.com", Subject: "S", Body: "B"})
	}
	for i := 0; i < 2; i++ {
		msg := mustCreate(t, svc, CreateRequest{Recipient: "s@b.com", Subject: "S", Body: "B"})
		_, err := svc.MarkAsSent(ctx, msg.ID)
		require.NoError(t, err)
	}
	msg := mustCreate(t, svc, CreateRequest{Recipient: "f@b.com", Subject: "S", Body: "B", MaxRetries: 1})
	_, err := svc.MarkAsFailed(ctx, msg.ID, "boom")
	require.NoError(t, err)

	stats, err := svc.GetQueueStats(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), stats.PendingCount)
	require.Equal(t, int64(2), stats.SentCount)
	require.Equal(t, int64(1), stats.FailedCount)
}

func TestDelete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	msg := mustCreate(t, svc, CreateRequest{Recipient: "a@b.com", Subject: "S", Body: "B"})

	id, err := svc.Delete(ctx, msg.ID)
	require.NoError(t, err)
	require.Equal(t, msg.ID, id)

	_, err = svc.Get(ctx, msg.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Delete(ctx, msg.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList_FilterAndOrder(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, CreateRequest{Recipient: "a@b.com", Subject: "S", Body: "B"})
	clock.Advance(time.Minute)
	b := mustCreate(t, svc, CreateRequest{Recipient: "b@b.com", Subject: "S", Body: "B"})
	clock.Advance(time.Minute)
	_, err := svc.MarkAsSent(ctx, b.ID)
	require.NoError(t, err)

	// Default order is newest first.
	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, b.ID, all[0].ID)

	st := StatusPending
	pendingOnly, err := svc.List(ctx, ListFilter{Status: &st, Order: "asc"})
	require.NoError(t, err)
	require.Len(t, pendingOnly, 1)
	require.Equal(t, a.ID, pendingOnly[0].ID)
}
