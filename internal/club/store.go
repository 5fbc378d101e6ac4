package club

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"trestle/internal/auth"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) GetMembership(ctx context.Context, clubID, userID uint64) (*Membership, error) {
	var m Membership
	err := s.db.WithContext(ctx).
		Where("club_id = ? AND user_id = ?", clubID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *GormStore) CreateMembership(ctx context.Context, m *Membership) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *GormStore) SaveMembership(ctx context.Context, m *Membership) error {
	return s.db.WithContext(ctx).
		Model(&Membership{}).
		Where("club_id = ? AND user_id = ?", m.ClubID, m.UserID).
		Updates(map[string]any{
			"address_number": m.AddressNumber,
			"tower_slot":     m.TowerSlot,
		}).Error
}

func (s *GormStore) AddressInUse(ctx context.Context, clubID uint64, address int, exceptUserID uint64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&Membership{}).
		Where("club_id = ? AND address_number = ? AND user_id <> ?", clubID, address, exceptUserID).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) SlotInUse(ctx context.Context, clubID uint64, slot int, exceptUserID uint64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&Membership{}).
		Where("club_id = ? AND tower_slot = ? AND user_id <> ?", clubID, slot, exceptUserID).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) GetInviteByToken(ctx context.Context, token string) (*InviteToken, error) {
	var inv InviteToken
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *GormStore) CreateInvite(ctx context.Context, inv *InviteToken) error {
	return s.db.WithContext(ctx).Create(inv).Error
}

func (s *GormStore) MarkInviteUsed(ctx context.Context, id uint64, usedAt time.Time) error {
	tx := s.db.WithContext(ctx).
		Model(&InviteToken{}).
		Where("id = ?", id).
		Update("used_at", usedAt)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) GetApplication(ctx context.Context, clubID, id uint64) (*Application, error) {
	var app Application
	err := s.db.WithContext(ctx).
		Where("id = ? AND club_id = ?", id, clubID).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

func (s *GormStore) SaveApplication(ctx context.Context, app *Application) error {
	return s.db.WithContext(ctx).Save(app).Error
}

func (s *GormStore) FindUserIDByEmail(ctx context.Context, email string) (uint64, bool, error) {
	var u auth.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return u.ID, true, nil
}
