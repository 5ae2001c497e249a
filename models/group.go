package models

import "time"

// Group представляет пенку (группу прогнозов) с опциональным
// паролем и взносом за участие.
type Group struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	CreatorID   int       `json:"creator_id"`
	// PasswordHash never leaves the server; clients only learn whether a
	// password gate exists at all.
	PasswordHash *string   `json:"-"`
	HasPassword  bool      `json:"password"`
	Fee          float64   `json:"fee"`
	Finished     bool      `json:"finished"`
	CreatedAt    time.Time `json:"created_at"`

	LogoKey *string `json:"-"`
	LogoURL *string `json:"logo_url,omitempty"`

	Members []Membership `json:"members,omitempty"`
}

// Membership — запись участия пользователя в группе.
type Membership struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	GroupID   int       `json:"group_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`

	User    *User    `json:"user,omitempty"`
	Payment *Payment `json:"payment,omitempty"`
}

// Payment is only meaningful for groups with Fee > 0. An incomplete
// payment blocks prediction submission for the member.
type Payment struct {
	ID          int       `json:"id"`
	MemberID    int       `json:"member_id"`
	Amount      float64   `json:"amount"`
	ProviderRef string    `json:"provider_ref"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}
