// Package tower covers a club's signal towers, the shift reports filed
// from them, and the issue tracker for layout faults.
package tower

import "time"

const (
	IssueOpen       = "open"
	IssueInProgress = "in_progress"
	IssueClosed     = "closed"
)

type Tower struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	ClubID      uint64    `gorm:"index;not null" json:"club_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text;not null;default:''" json:"description"`
	Location    string    `gorm:"type:text;not null;default:''" json:"location"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// TowerReport is a shift log entry filed by the member who staffed the
// tower on a given operating day.
type TowerReport struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	ClubID       uint64    `gorm:"index;not null" json:"club_id"`
	TowerID      uint64    `gorm:"index;not null" json:"tower_id"`
	AuthorID     uint64    `gorm:"index;not null" json:"author_id"`
	Summary      string    `gorm:"not null" json:"summary"`
	Body         string    `gorm:"type:text;not null;default:''" json:"body"`
	OperatingDay time.Time `gorm:"not null;type:date" json:"operating_day"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

type Issue struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	ClubID    uint64    `gorm:"index;not null" json:"club_id"`
	TowerID   *uint64   `gorm:"index" json:"tower_id,omitempty"`
	AuthorID  uint64    `gorm:"not null" json:"author_id"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `gorm:"type:text;not null;default:''" json:"body"`
	Status    string    `gorm:"not null;default:'open'" json:"status"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// ValidIssueStatus reports whether s names one of the tracked states.
func ValidIssueStatus(s string) bool {
	switch s {
	case IssueOpen, IssueInProgress, IssueClosed:
		return true
	}
	return false
}
