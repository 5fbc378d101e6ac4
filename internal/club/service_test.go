package club

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memberKey struct {
	clubID uint64
	userID uint64
}

type fakeStore struct {
	memberships   map[memberKey]*Membership
	invites       map[string]*InviteToken
	applications  map[uint64]*Application
	usersByEmail  map[string]uint64
	nextID        uint64
	membershipErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		memberships:  make(map[memberKey]*Membership),
		invites:      make(map[string]*InviteToken),
		applications: make(map[uint64]*Application),
		usersByEmail: make(map[string]uint64),
	}
}

func (f *fakeStore) GetMembership(_ context.Context, clubID, userID uint64) (*Membership, error) {
	if f.membershipErr != nil {
		return nil, f.membershipErr
	}
	m, ok := f.memberships[memberKey{clubID, userID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStore) CreateMembership(_ context.Context, m *Membership) error {
	f.memberships[memberKey{m.ClubID, m.UserID}] = m
	return nil
}

func (f *fakeStore) SaveMembership(_ context.Context, m *Membership) error {
	f.memberships[memberKey{m.ClubID, m.UserID}] = m
	return nil
}

func (f *fakeStore) AddressInUse(_ context.Context, clubID uint64, address int, exceptUserID uint64) (bool, error) {
	for k, m := range f.memberships {
		if k.clubID == clubID && k.userID != exceptUserID && m.AddressNumber != nil && *m.AddressNumber == address {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) SlotInUse(_ context.Context, clubID uint64, slot int, exceptUserID uint64) (bool, error) {
	for k, m := range f.memberships {
		if k.clubID == clubID && k.userID != exceptUserID && m.TowerSlot != nil && *m.TowerSlot == slot {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetInviteByToken(_ context.Context, token string) (*InviteToken, error) {
	inv, ok := f.invites[token]
	if !ok {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (f *fakeStore) CreateInvite(_ context.Context, inv *InviteToken) error {
	f.nextID++
	inv.ID = f.nextID
	f.invites[inv.Token] = inv
	return nil
}

func (f *fakeStore) MarkInviteUsed(_ context.Context, id uint64, usedAt time.Time) error {
	for _, inv := range f.invites {
		if inv.ID == id {
			inv.UsedAt = &usedAt
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) GetApplication(_ context.Context, clubID, id uint64) (*Application, error) {
	app, ok := f.applications[id]
	if !ok || app.ClubID != clubID {
		return nil, ErrNotFound
	}
	return app, nil
}

func (f *fakeStore) SaveApplication(_ context.Context, app *Application) error {
	f.applications[app.ID] = app
	return nil
}

func (f *fakeStore) FindUserIDByEmail(_ context.Context, email string) (uint64, bool, error) {
	id, ok := f.usersByEmail[email]
	return id, ok, nil
}

type fakeMailer struct {
	queued []struct {
		recipient string
		subject   string
	}
}

func (f *fakeMailer) Queue(_ context.Context, recipient, subject, _ string) error {
	f.queued = append(f.queued, struct {
		recipient string
		subject   string
	}{recipient, subject})
	return nil
}

func intp(v int) *int { return &v }

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("creates the membership", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store).WithClock(func() time.Time { return base })

		m, err := svc.AddMember(ctx, 1, 10)
		require.NoError(t, err)
		require.Equal(t, uint64(1), m.ClubID)
		require.Equal(t, uint64(10), m.UserID)
		require.Equal(t, base, m.JoinedAt)
	})

	t.Run("duplicate", func(t *testing.T) {
		store := newFakeStore()
		store.memberships[memberKey{1, 10}] = &Membership{ClubID: 1, UserID: 10}
		svc := NewService(store)

		_, err := svc.AddMember(ctx, 1, 10)
		require.ErrorIs(t, err, ErrAlreadyMember)
	})

	t.Run("store failures pass through", func(t *testing.T) {
		store := newFakeStore()
		boom := errors.New("connection reset")
		store.membershipErr = boom
		svc := NewService(store)

		_, err := svc.AddMember(ctx, 1, 10)
		require.ErrorIs(t, err, boom)
	})
}

func TestAssignSlots(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.memberships[memberKey{1, 10}] = &Membership{ClubID: 1, UserID: 10}
	store.memberships[memberKey{1, 11}] = &Membership{ClubID: 1, UserID: 11, AddressNumber: intp(3), TowerSlot: intp(2)}
	store.memberships[memberKey{2, 12}] = &Membership{ClubID: 2, UserID: 12, AddressNumber: intp(7)}

	svc := NewService(store)

	m, err := svc.AssignSlots(ctx, 1, 10, intp(5), intp(1))
	require.NoError(t, err)
	require.Equal(t, 5, *m.AddressNumber)
	require.Equal(t, 1, *m.TowerSlot)

	_, err = svc.AssignSlots(ctx, 1, 10, intp(3), nil)
	require.ErrorIs(t, err, ErrAddressTaken)

	_, err = svc.AssignSlots(ctx, 1, 10, nil, intp(2))
	require.ErrorIs(t, err, ErrSlotTaken)

	// the same number in another club is fine
	m, err = svc.AssignSlots(ctx, 1, 10, intp(7), nil)
	require.NoError(t, err)
	require.Equal(t, 7, *m.AddressNumber)
	require.Nil(t, m.TowerSlot)

	// keeping your own number is not a conflict
	m, err = svc.AssignSlots(ctx, 1, 11, intp(3), intp(2))
	require.NoError(t, err)
	require.Equal(t, 3, *m.AddressNumber)

	_, err = svc.AssignSlots(ctx, 1, 99, intp(1), nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateInviteQueuesEmail(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	mailer := &fakeMailer{}
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(store).WithMailer(mailer).WithClock(func() time.Time { return base })

	inv, err := svc.CreateInvite(ctx, 1, 42, "new@example.com", 14*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, inv.Token, 48)
	require.Equal(t, base.Add(14*24*time.Hour), inv.ExpiresAt)

	require.Len(t, mailer.queued, 1)
	require.Equal(t, "new@example.com", mailer.queued[0].recipient)
}

func TestRedeemInvite(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("joins the club and burns the token", func(t *testing.T) {
		store := newFakeStore()
		svc := NewService(store).WithClock(func() time.Time { return base })

		inv, err := svc.CreateInvite(ctx, 1, 42, "new@example.com", time.Hour)
		require.NoError(t, err)

		m, err := svc.RedeemInvite(ctx, inv.Token, 10)
		require.NoError(t, err)
		require.Equal(t, uint64(1), m.ClubID)
		require.Equal(t, uint64(10), m.UserID)

		_, err = svc.RedeemInvite(ctx, inv.Token, 11)
		require.ErrorIs(t, err, ErrInviteUsed)
	})

	t.Run("expired", func(t *testing.T) {
		store := newFakeStore()
		now := base
		svc := NewService(store).WithClock(func() time.Time { return now })

		inv, err := svc.CreateInvite(ctx, 1, 42, "late@example.com", time.Hour)
		require.NoError(t, err)

		now = base.Add(2 * time.Hour)
		_, err = svc.RedeemInvite(ctx, inv.Token, 10)
		require.ErrorIs(t, err, ErrInviteExpired)
	})

	t.Run("already a member", func(t *testing.T) {
		store := newFakeStore()
		store.memberships[memberKey{1, 10}] = &Membership{ClubID: 1, UserID: 10}
		svc := NewService(store).WithClock(func() time.Time { return base })

		inv, err := svc.CreateInvite(ctx, 1, 42, "dupe@example.com", time.Hour)
		require.NoError(t, err)

		_, err = svc.RedeemInvite(ctx, inv.Token, 10)
		require.ErrorIs(t, err, ErrAlreadyMember)
	})

	t.Run("unknown token", func(t *testing.T) {
		svc := NewService(newFakeStore())
		_, err := svc.RedeemInvite(ctx, "nope", 10)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestApproveApplication(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	store := newFakeStore()
	store.applications[1] = &Application{ID: 1, ClubID: 1, Name: "Lena", Email: "lena@example.com", Status: ApplicationPending}
	store.usersByEmail["lena@example.com"] = 55

	mailer := &fakeMailer{}
	svc := NewService(store).WithMailer(mailer).WithClock(func() time.Time { return base })

	app, err := svc.ApproveApplication(ctx, 1, 1, 42)
	require.NoError(t, err)
	require.Equal(t, ApplicationApproved, app.Status)
	require.Equal(t, uint64(42), *app.DecidedBy)
	require.Equal(t, base, *app.DecidedAt)

	// the applicant's existing account gets a membership
	m, err := store.GetMembership(ctx, 1, 55)
	require.NoError(t, err)
	require.Equal(t, base, m.JoinedAt)

	require.Len(t, mailer.queued, 1)
	require.Equal(t, "lena@example.com", mailer.queued[0].recipient)
	require.Equal(t, "Membership approved", mailer.queued[0].subject)

	// deciding twice is rejected
	_, err = svc.ApproveApplication(ctx, 1, 1, 42)
	require.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestApproveApplicationWithoutAccount(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.applications[1] = &Application{ID: 1, ClubID: 1, Name: "Sam", Email: "sam@example.com", Status: ApplicationPending}

	svc := NewService(store)

	app, err := svc.ApproveApplication(ctx, 1, 1, 42)
	require.NoError(t, err)
	require.Equal(t, ApplicationApproved, app.Status)
	require.Empty(t, store.memberships)
}

func TestRejectApplication(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.applications[1] = &Application{ID: 1, ClubID: 1, Name: "Sam", Email: "sam@example.com", Status: ApplicationPending}

	mailer := &fakeMailer{}
	svc := NewService(store).WithMailer(mailer)

	app, err := svc.RejectApplication(ctx, 1, 1, 42)
	require.NoError(t, err)
	require.Equal(t, ApplicationRejected, app.Status)
	require.Empty(t, store.memberships)
	require.Len(t, mailer.queued, 1)

	_, err = svc.RejectApplication(ctx, 1, 1, 42)
	require.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestRejectApplicationWrongClub(t *testing.T) {
	store := newFakeStore()
	store.applications[1] = &Application{ID: 1, ClubID: 2, Status: ApplicationPending}

	svc := NewService(store)
	_, err := svc.RejectApplication(context.Background(), 1, 1, 42)
	require.ErrorIs(t, err, ErrNotFound)
}
