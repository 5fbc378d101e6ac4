// Package club holds the multi-tenant core: clubs, memberships with
// per-club address and tower-slot assignments, membership applications,
// and invite tokens.
package club

import (
	"errors"
	"time"
)

const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAddressTaken   = errors.New("address number already taken in this club")
	ErrSlotTaken      = errors.New("tower slot already taken in this club")
	ErrAlreadyMember  = errors.New("user is already a member of this club")
	ErrInviteExpired  = errors.New("invite token expired")
	ErrInviteUsed     = errors.New("invite token already used")
	ErrAlreadyDecided = errors.New("application already decided")
)

type Club struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// Membership ties a user to a club. AddressNumber is the member's layout
// address on the club's arrangement, TowerSlot the signal-tower position;
// both are unique within a club while set. Partial unique indexes back the
// service-level checks.
type Membership struct {
	ClubID        uint64    `gorm:"primaryKey;autoIncrement:false" json:"club_id"`
	UserID        uint64    `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	AddressNumber *int      `json:"address_number,omitempty"`
	TowerSlot     *int      `json:"tower_slot,omitempty"`
	JoinedAt      time.Time `gorm:"not null;default:now()" json:"joined_at"`
}

type Application struct {
	ID        uint64     `gorm:"primaryKey" json:"id"`
	ClubID    uint64     `gorm:"index;not null" json:"club_id"`
	Name      string     `gorm:"not null" json:"name"`
	Email     string     `gorm:"not null" json:"email"`
	Message   string     `gorm:"type:text;not null;default:''" json:"message"`
	Status    string     `gorm:"not null;default:'pending'" json:"status"`
	DecidedBy *uint64    `json:"decided_by,omitempty"`
	DecidedAt *time.Time `gorm:"type:timestamptz" json:"decided_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

type InviteToken struct {
	ID        uint64     `gorm:"primaryKey" json:"id"`
	ClubID    uint64     `gorm:"index;not null" json:"club_id"`
	Token     string     `gorm:"uniqueIndex;not null" json:"token"`
	Email     string     `gorm:"not null" json:"email"`
	CreatedBy uint64     `gorm:"not null" json:"created_by"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `gorm:"type:timestamptz" json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
}
