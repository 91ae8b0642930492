package domain

import "time"

// LinkType classifies link destinations seen in the group.
type LinkType string

const (
	LinkTypeInternal LinkType = "INTERNAL"
	LinkTypeAllowed  LinkType = "ALLOWED"
	LinkTypeExternal LinkType = "EXTERNAL"
)

// LinkClick records a single link posted or clicked by a subscriber.
type LinkClick struct {
	ID        int64
	UserID    int64
	LinkType  LinkType
	Domain    string
	URL       string
	ClickedAt time.Time
}

// LinkClickStat aggregates clicks per link type over a reporting window.
type LinkClickStat struct {
	LinkType    LinkType
	Clicks      int64
	UniqueUsers int64
}
