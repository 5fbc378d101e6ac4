package club

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Store is the persistence contract for the membership flows that carry
// actual rules: slot assignment, invite redemption, application decisions.
type Store interface {
	GetMembership(ctx context.Context, clubID, userID uint64) (*Membership, error)
	CreateMembership(ctx context.Context, m *Membership) error
	SaveMembership(ctx context.Context, m *Membership) error
	AddressInUse(ctx context.Context, clubID uint64, address int, exceptUserID uint64) (bool, error)
	SlotInUse(ctx context.Context, clubID uint64, slot int, exceptUserID uint64) (bool, error)

	GetInviteByToken(ctx context.Context, token string) (*InviteToken, error)
	CreateInvite(ctx context.Context, inv *InviteToken) error
	MarkInviteUsed(ctx context.Context, id uint64, usedAt time.Time) error

	GetApplication(ctx context.Context, clubID, id uint64) (*Application, error)
	SaveApplication(ctx context.Context, app *Application) error

	FindUserIDByEmail(ctx context.Context, email string) (uint64, bool, error)
}

// Mailer queues an email into the outbox.
type Mailer interface {
	Queue(ctx context.Context, recipient, subject, body string) error
}

type Service struct {
	store  Store
	mailer Mailer
	now    func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) WithMailer(m Mailer) *Service {
	s.mailer = m
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddMember joins a user to a club. Returns ErrAlreadyMember when a
// membership already exists; store failures pass through unchanged.
func (s *Service) AddMember(ctx context.Context, clubID, userID uint64) (*Membership, error) {
	if _, err := s.store.GetMembership(ctx, clubID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	m := &Membership{ClubID: clubID, UserID: userID, JoinedAt: s.now()}
	if err := s.store.CreateMembership(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// AssignSlots replaces a member's address number and tower slot. A nil
// value clears the assignment. Numbers must be free within the club.
func (s *Service) AssignSlots(ctx context.Context, clubID, userID uint64, address, slot *int) (*Membership, error) {
	m, err := s.store.GetMembership(ctx, clubID, userID)
	if err != nil {
		return nil, err
	}

	if address != nil {
		taken, err := s.store.AddressInUse(ctx, clubID, *address, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrAddressTaken
		}
	}
	if slot != nil {
		taken, err := s.store.SlotInUse(ctx, clubID, *slot, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrSlotTaken
		}
	}

	m.AddressNumber = address
	m.TowerSlot = slot
	if err := s.store.SaveMembership(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateInvite issues a single-use token and queues the invite email.
func (s *Service) CreateInvite(ctx context.Context, clubID, createdBy uint64, email string, ttl time.Duration) (*InviteToken, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}

	inv := &InviteToken{
		ClubID:    clubID,
		Token:     token,
		Email:     email,
		CreatedBy: createdBy,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.store.CreateInvite(ctx, inv); err != nil {
		return nil, err
	}

	if s.mailer != nil {
		body := fmt.Sprintf("You have been invited to join a club. Your invite token: %s", token)
		if err := s.mailer.Queue(ctx, email, "Club invitation", body); err != nil {
			slog.Warn("failed to queue invite email", "invite_id", inv.ID, "error", err)
		}
	}
	return inv, nil
}

// RedeemInvite joins the calling user to the invite's club and burns the
// token.
func (s *Service) RedeemInvite(ctx context.Context, token string, userID uint64) (*Membership, error) {
	inv, err := s.store.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.UsedAt != nil {
		return nil, ErrInviteUsed
	}

	now := s.now()
	if now.After(inv.ExpiresAt) {
		return nil, ErrInviteExpired
	}

	if _, err := s.store.GetMembership(ctx, inv.ClubID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	m := &Membership{ClubID: inv.ClubID, UserID: userID, JoinedAt: now}
	if err := s.store.CreateMembership(ctx, m); err != nil {
		return nil, err
	}
	if err := s.store.MarkInviteUsed(ctx, inv.ID, now); err != nil {
		return nil, err
	}
	return m, nil
}

// ApproveApplication marks the application approved, creates a membership
// when a user account with the applicant's email exists, and queues the
// welcome email.
func (s *Service) ApproveApplication(ctx context.Context, clubID, appID, decidedBy uint64) (*Application, error) {
	app, err := s.decide(ctx, clubID, appID, decidedBy, ApplicationApproved)
	if err != nil {
		return nil, err
	}

	if userID, ok, err := s.store.FindUserIDByEmail(ctx, app.Email); err != nil {
		return nil, err
	} else if ok {
		if _, err := s.store.GetMembership(ctx, clubID, userID); errors.Is(err, ErrNotFound) {
			m := &Membership{ClubID: clubID, UserID: userID, JoinedAt: s.now()}
			if err := s.store.CreateMembership(ctx, m); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
	}

	if s.mailer != nil {
		body := fmt.Sprintf("Hello %s, your membership application has been approved. Welcome aboard!", app.Name)
		if err := s.mailer.Queue(ctx, app.Email, "Membership approved", body); err != nil {
			slog.Warn("failed to queue welcome email", "application_id", app.ID, "error", err)
		}
	}
	return app, nil
}

func (s *Service) RejectApplication(ctx context.Context, clubID, appID, decidedBy uint64) (*Application, error) {
	app, err := s.decide(ctx, clubID, appID, decidedBy, ApplicationRejected)
	if err != nil {
		return nil, err
	}

	if s.mailer != nil {
		body := fmt.Sprintf("Hello %s, unfortunately your membership application was not accepted.", app.Name)
		if err := s.mailer.Queue(ctx, app.Email, "Membership application update", body); err != nil {
			slog.Warn("failed to queue rejection email", "application_id", app.ID, "error", err)
		}
	}
	return app, nil
}

func (s *Service) decide(ctx context.Context, clubID, appID, decidedBy uint64, status string) (*Application, error) {
	app, err := s.store.GetApplication(ctx, clubID, appID)
	if err != nil {
		return nil, err
	}
	if app.Status != ApplicationPending {
		return nil, ErrAlreadyDecided
	}

	now := s.now()
	app.Status = status
	app.DecidedBy = &decidedBy
	app.DecidedAt = &now
	if err := s.store.SaveApplication(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

func randomToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
