package db

import (
	"time"
)

// DateLayout is the calendar-date format used by Like.Date and
// User.LastDrinkingDate.
const DateLayout = "2006-01-02"

// User table
//
// IsDrinkingToday is only meaningful while LastDrinkingDate equals the
// current date; a stale status is reset on the next session touch.
type User struct {
	ID               string    `json:"id" gorm:"primaryKey;size:64"`
	Email            string    `json:"email" gorm:"uniqueIndex;size:128;not null"`
	Username         string    `json:"username" gorm:"index;size:64;not null"`
	PasswordHash     string    `json:"password_hash" gorm:"size:255;not null"`
	Bio              string    `json:"bio" gorm:"size:512"`
	AvatarURL        string    `json:"avatar_url" gorm:"size:255"`
	Phone            string    `json:"phone" gorm:"size:32"`
	IsDrinkingToday  bool      `json:"is_drinking_today" gorm:"not null"`
	LastDrinkingDate *string   `json:"last_drinking_date" gorm:"size:10"`
	IsActive         bool      `json:"is_active" gorm:"not null"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

type FollowStatus string

const (
	FollowPending  FollowStatus = "pending"
	FollowAccepted FollowStatus = "accepted"
	FollowRejected FollowStatus = "rejected"
)

// Follow is a directed edge follower -> following.
//
// Index:
//   - idx_follow_pair(follower_id, following_id) unique: one edge per ordered pair.
//   - idx_follow_target_status(following_id, status): incoming/pending lookups.
type Follow struct {
	ID          string       `json:"id" gorm:"primaryKey;size:64"`
	FollowerID  string       `json:"follower_id" gorm:"size:64;not null;uniqueIndex:idx_follow_pair,priority:1"`
	FollowingID string       `json:"following_id" gorm:"size:64;not null;uniqueIndex:idx_follow_pair,priority:2;index:idx_follow_target_status,priority:1"`
	Status      FollowStatus `json:"status" gorm:"size:16;not null;index:idx_follow_target_status,priority:2"`
	RequestedAt time.Time    `json:"requested_at"`
	RespondedAt *time.Time   `json:"responded_at"`
	CreatedAt   time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

// Like is a dated edge liker -> liked. One like per (liker, liked, date),
// enforced by a unique index since likes are never deactivated.
//
// Matched flips to true once when the reciprocal like for the same date exists.
type Like struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	LikerID   string    `json:"liker_id" gorm:"size:64;not null;uniqueIndex:idx_like_triple,priority:1"`
	LikedID   string    `json:"liked_id" gorm:"size:64;not null;uniqueIndex:idx_like_triple,priority:2"`
	Date      string    `json:"date" gorm:"size:10;not null;uniqueIndex:idx_like_triple,priority:3"`
	IsActive  bool      `json:"is_active" gorm:"not null"`
	Matched   bool      `json:"matched" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

type NotificationType string

const (
	NotifyFollowRequest  NotificationType = "follow_request"
	NotifyFollowAccepted NotificationType = "follow_accepted"
	NotifyLikeReceived   NotificationType = "like_received"
	NotifyMatchMade      NotificationType = "match_made"
)

type Notification struct {
	ID         string           `json:"id" gorm:"primaryKey;size:64"`
	UserID     string           `json:"user_id" gorm:"size:64;not null;index:idx_notification_user_created,priority:1"`
	Type       NotificationType `json:"type" gorm:"size:32;not null"`
	FromUserID string           `json:"from_user_id" gorm:"size:64"`
	Message    string           `json:"message" gorm:"size:255"`
	IsRead     bool             `json:"is_read" gorm:"not null"`
	CreatedAt  time.Time        `json:"created_at" gorm:"autoCreateTime;index:idx_notification_user_created,priority:2,sort:desc"`
}

func (User) TableName() string         { return "users" }
func (Follow) TableName() string       { return "follows" }
func (Like) TableName() string         { return "likes" }
func (Notification) TableName() string { return "notifications" }

func (u *User) RecordID() string              { return u.ID }
func (u *User) SetRecordID(id string)         { u.ID = id }
func (f *Follow) RecordID() string            { return f.ID }
func (f *Follow) SetRecordID(id string)       { f.ID = id }
func (l *Like) RecordID() string              { return l.ID }
func (l *Like) SetRecordID(id string)         { l.ID = id }
func (n *Notification) RecordID() string      { return n.ID }
func (n *Notification) SetRecordID(id string) { n.ID = id }

// SearchColumns lists the columns a free-text search matches against.
func (User) SearchColumns() []string { return []string{"username", "email", "bio"} }

// Models returns every table model, in migration order.
func Models() []any {
	return []any{&User{}, &Follow{}, &Like{}, &Notification{}}
}
