package events

import (
	"time"

	"github.com/spec-kit/funnel-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventMemberJoined          EventType = "member_joined"
	EventStageAdvanced         EventType = "stage_advanced"
	EventSubscriberDeactivated EventType = "subscriber_deactivated"
	EventMessageFlagged        EventType = "message_flagged"
	EventBroadcastCompleted    EventType = "broadcast_completed"
)

// Event represents a domain event emitted by services and the funnel engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    int64       `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// MemberJoinedPayload payload.
type MemberJoinedPayload struct {
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}

// StageAdvancedPayload payload.
type StageAdvancedPayload struct {
	FromStage int `json:"from_stage"`
	ToStage   int `json:"to_stage"`
}

// SubscriberDeactivatedPayload payload.
type SubscriberDeactivatedPayload struct {
	Reason string `json:"reason"`
}

// MessageFlaggedPayload payload.
type MessageFlaggedPayload struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Reason    string `json:"reason"`
	Preview   string `json:"preview,omitempty"`
}

// BroadcastCompletedPayload payload.
type BroadcastCompletedPayload struct {
	BroadcastID string `json:"broadcast_id"`
	Sent        int    `json:"sent"`
	Failed      int    `json:"failed"`
}

// LinkTrackedPayload payload for moderation link records.
type LinkTrackedPayload struct {
	LinkType domain.LinkType `json:"link_type"`
	Domain   string          `json:"domain"`
}
