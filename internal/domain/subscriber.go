package domain

import "time"

// Subscriber is a tracked community member progressing through the funnel.
//
// Stage is a 0-based index into the stage catalog. It only moves forward,
// one step per successful engine transition, and never past the terminal
// catalog index. LastTransitionAt records the most recent stage change and
// defaults to the join time while the subscriber is still at stage 0.
type Subscriber struct {
	UserID           int64
	Username         string
	FirstName        string
	LastName         string
	Stage            int
	JoinedAt         time.Time
	LastTransitionAt time.Time
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DisplayName returns the best human-readable name available.
func (s Subscriber) DisplayName() string {
	if s.FirstName != "" {
		return s.FirstName
	}
	if s.Username != "" {
		return "@" + s.Username
	}
	return "member"
}

// SubscriberStats aggregates counts for admin reporting.
type SubscriberStats struct {
	TotalActive int64
	PerStage    map[int]int64
	NewToday    int64
	NewThisWeek int64
	Deactivated int64
}
