// Package schedule holds a club's operating calendar: driving sessions,
// member appointments, and club notices.
package schedule

import (
	"time"

	"github.com/lib/pq"
)

// Session is a scheduled operating session on the club layout. Tracks
// lists the track names reserved for the session.
type Session struct {
	ID        uint64         `gorm:"primaryKey" json:"id"`
	ClubID    uint64         `gorm:"index;not null" json:"club_id"`
	Title     string         `gorm:"not null" json:"title"`
	Location  string         `gorm:"type:text;not null;default:''" json:"location"`
	StartsAt  time.Time      `gorm:"not null;type:timestamptz" json:"starts_at"`
	EndsAt    time.Time      `gorm:"not null;type:timestamptz" json:"ends_at"`
	Tracks    pq.StringArray `gorm:"type:text[]" json:"tracks"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

// Appointment is a member's personal calendar entry within a club, e.g.
// a maintenance shift or a visit slot.
type Appointment struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	ClubID    uint64    `gorm:"index;not null" json:"club_id"`
	UserID    uint64    `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"not null" json:"title"`
	Notes     string    `gorm:"type:text;not null;default:''" json:"notes"`
	StartsAt  time.Time `gorm:"not null;type:timestamptz" json:"starts_at"`
	EndsAt    time.Time `gorm:"not null;type:timestamptz" json:"ends_at"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

type Notice struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	ClubID      uint64     `gorm:"index;not null" json:"club_id"`
	AuthorID    uint64     `gorm:"not null" json:"author_id"`
	Title       string     `gorm:"not null" json:"title"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	PublishedAt *time.Time `gorm:"type:timestamptz" json:"published_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}
