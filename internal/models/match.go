package models

import "time"

// User is the account behind a profile. Only the fields the notifier needs.
type User struct {
	ID        string    `bson:"_id" json:"id" gorm:"primaryKey;size:36"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func (User) TableName() string { return "users" }

// ProfileWithUser is a profile joined with its owning user. User is nil
// when the account no longer exists.
type ProfileWithUser struct {
	Profile *ProfessionalProfile
	User    *User
}

// MatchLog claims the notification of a user about an offer. At most one
// row exists per (offer, user). TaskID is the task that owns delivery and
// NotifiedAt is set once the email went out.
type MatchLog struct {
	ID         string     `bson:"_id" json:"id" gorm:"primaryKey;size:36"`
	OfferID    string     `bson:"offer_id" json:"offer_id" gorm:"size:36;not null;uniqueIndex:ux_match_logs_offer_user"`
	UserID     string     `bson:"user_id" json:"user_id" gorm:"size:36;not null;uniqueIndex:ux_match_logs_offer_user"`
	ProfileID  string     `bson:"profile_id" json:"profile_id" gorm:"size:36"`
	TaskID     string     `bson:"task_id" json:"task_id" gorm:"size:36"`
	NotifiedAt *time.Time `bson:"notified_at,omitempty" json:"notified_at,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
}

// Delivered reports whether the email for this match was sent
func (l *MatchLog) Delivered() bool {
	return l.NotifiedAt != nil
}

func (MatchLog) TableName() string { return "match_logs" }

// MatchPair is one (offer, profile) candidate emitted by the matching process
type MatchPair struct {
	OfferID   string `json:"offer_id"`
	ProfileID string `json:"profile_id"`
}
