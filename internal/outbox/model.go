// Package outbox implements the email outbox queue: a status column on a
// table, polled by an external sender process and mutated through the
// Service's mark-sent / mark-failed operations.
package outbox

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

const (
	DefaultMaxRetries = 3
	DefaultBatchLimit = 10

	// retryScanLimit caps how many failed messages a bulk retry inspects.
	retryScanLimit = 1000
)

var (
	ErrNotFound         = errors.New("outbox message not found")
	ErrMissingRecipient = errors.New("recipient_email is required")
	ErrMissingSubject   = errors.New("subject is required")
	ErrMissingBody      = errors.New("body is required")
)

type Message struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	Recipient   string     `gorm:"column:recipient_email;not null" json:"recipient_email"`
	Subject     string     `gorm:"type:text;not null" json:"subject"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	HTMLBody    *string    `gorm:"column:html_body;type:text" json:"html_body,omitempty"`
	Status      Status     `gorm:"type:text;index;not null;default:'pending'" json:"status"`
	RetryCount  int        `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries  int        `gorm:"not null;default:3" json:"max_retries"`
	LastError   *string    `gorm:"type:text" json:"last_error,omitempty"`
	ScheduledAt *time.Time `gorm:"type:timestamptz" json:"scheduled_at,omitempty"`
	SentAt      *time.Time `gorm:"type:timestamptz" json:"sent_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index;not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"index;not null;default:now()" json:"updated_at"`
}

func (Message) TableName() string { return "outbox_messages" }

// CreateRequest carries the immutable payload of a new message.
// MaxRetries 0 means "use the default".
type CreateRequest struct {
	Recipient   string     `json:"recipient_email"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	HTMLBody    *string    `json:"html_body"`
	MaxRetries  int        `json:"max_retries"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (r *CreateRequest) Validate() error {
	if r.Recipient == "" {
		return ErrMissingRecipient
	}
	if r.Subject == "" {
		return ErrMissingSubject
	}
	if r.Body == "" {
		return ErrMissingBody
	}
	return nil
}

type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
	Order  string // "asc" or "desc" by created_at, default desc
}

type QueueStats struct {
	PendingCount int64 `json:"pending_count"`
	SentCount    int64 `json:"sent_count"`
	FailedCount  int64 `json:"failed_count"`
}
