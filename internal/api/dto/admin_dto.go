package dto

import "time"

// LoginRequest carries admin credentials.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse returns the issued token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BroadcastRequest carries the message to send to all active subscribers.
type BroadcastRequest struct {
	Text string `json:"text"`
}

// BroadcastResponse summarizes the broadcast outcome.
type BroadcastResponse struct {
	BroadcastID string `json:"broadcast_id"`
	Sent        int    `json:"sent"`
	Failed      int    `json:"failed"`
}

// StageCount is one row of the funnel breakdown.
type StageCount struct {
	Stage int    `json:"stage"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// OverviewResponse is the admin stats payload.
type OverviewResponse struct {
	TotalActive int64        `json:"total_active"`
	NewToday    int64        `json:"new_today"`
	NewThisWeek int64        `json:"new_this_week"`
	Deactivated int64        `json:"deactivated"`
	Funnel      []StageCount `json:"funnel"`
}

// SubscriberResponse is the public view of a subscriber.
type SubscriberResponse struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	Stage     int       `json:"stage"`
	JoinedAt  time.Time `json:"joined_at"`
	Active    bool      `json:"active"`
}

// LinkStatResponse is one aggregated link click row.
type LinkStatResponse struct {
	LinkType    string `json:"link_type"`
	Clicks      int64  `json:"clicks"`
	UniqueUsers int64  `json:"unique_users"`
}

// MeetingLinkRequest updates the weekly meeting link.
type MeetingLinkRequest struct {
	Link string `json:"link"`
}
