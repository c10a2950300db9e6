// Package eventlog persists one audit row per post the bot acted on (or
// declined to act on). Rows are append-only; aggregate counts live in
// countstore, this is the per-post record used for review and the admin
// /interactions endpoint.
package eventlog

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	ActionReplyPosted = "reply-posted"
	ActionReplyFailed = "reply-failed"
	ActionRejected    = "rejected"
)

type Interaction struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`

	Action    string `gorm:"index" json:"action"`
	PostID    string `gorm:"index" json:"postId"`
	Subreddit string `json:"subreddit"`
	PostTitle string `json:"postTitle"`

	// keyword verdict for the post, empty when nothing matched
	Pattern  string `json:"pattern,omitempty"`
	Category string `json:"category,omitempty"`
	Priority int    `json:"priority,omitempty"`

	// populated for ActionRejected
	RejectReason string `json:"rejectReason,omitempty"`

	// populated for ActionReplyPosted / ActionReplyFailed
	Provider  string `json:"provider,omitempty"`
	ReplyText string `json:"replyText,omitempty"`
	LatencyMs int64  `json:"latencyMs,omitempty"`
	Error     string `json:"error,omitempty"`
}

type EventLog struct {
	db *gorm.DB
}

func NewEventLog(db *gorm.DB) (*EventLog, error) {
	if err := db.AutoMigrate(&Interaction{}); err != nil {
		return nil, fmt.Errorf("migrating interaction table: %w", err)
	}
	return &EventLog{db: db}, nil
}

func (l *EventLog) Record(ctx context.Context, row *Interaction) error {
	if err := l.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("recording interaction: %w", err)
	}
	return nil
}

// Recent returns the newest rows first, optionally filtered by action.
func (l *EventLog) Recent(ctx context.Context, limit int, action string) ([]Interaction, error) {
	if limit <= 0 {
		limit = 50
	}
	q := l.db.WithContext(ctx).Order("id desc").Limit(limit)
	if action != "" {
		q = q.Where("action = ?", action)
	}
	var rows []Interaction
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying interactions: %w", err)
	}
	return rows, nil
}

func (l *EventLog) CountSince(ctx context.Context, action string, since time.Time) (int64, error) {
	var count int64
	q := l.db.WithContext(ctx).Model(&Interaction{}).Where("created_at >= ?", since)
	if action != "" {
		q = q.Where("action = ?", action)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting interactions: %w", err)
	}
	return count, nil
}

// TrimBefore deletes rows older than cutoff and reports how many went away.
func (l *EventLog) TrimBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := l.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Interaction{})
	if res.Error != nil {
		return 0, fmt.Errorf("trimming interactions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
