package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SubscriptionActionSubscribe   = "subscribe"
	SubscriptionActionUnsubscribe = "unsubscribe"
)

const (
	EpisodeActionDownload = "download"
	EpisodeActionPlay     = "play"
	EpisodeActionSync     = "sync"
	EpisodeActionLock     = "lock"
	EpisodeActionDelete   = "delete"
)

// EpisodeActionTypes lists the accepted episode action kinds.
var EpisodeActionTypes = []string{
	EpisodeActionDownload,
	EpisodeActionPlay,
	EpisodeActionSync,
	EpisodeActionLock,
	EpisodeActionDelete,
}

// ValidEpisodeAction reports whether a is an accepted episode action kind.
func ValidEpisodeAction(a string) bool {
	for _, t := range EpisodeActionTypes {
		if a == t {
			return true
		}
	}
	return false
}

// ValidSubscriptionAction reports whether a is subscribe or unsubscribe.
func ValidSubscriptionAction(a string) bool {
	return a == SubscriptionActionSubscribe || a == SubscriptionActionUnsubscribe
}

// SubscriptionAction is one entry of the append-only subscription log. Rows
// are never mutated or deleted after acceptance; current subscription state is
// always derived from the log.
type SubscriptionAction struct {
	bun.BaseModel `bun:"table:subscription_actions,alias:sa"`

	ID        int       `bun:",pk,nullzero" json:"-"`
	CreatedAt time.Time `json:"-"`
	DeviceID  int       `json:"-"`
	PodcastID int       `json:"-"`
	Action    string    `bun:",nullzero" json:"action"`
	Timestamp time.Time `json:"timestamp"`

	Device  *Device  `bun:"rel:belongs-to,join:device_id=id" json:"-"`
	Podcast *Podcast `bun:"rel:belongs-to,join:podcast_id=id" json:"-"`
}

// EpisodeAction is one entry of the append-only episode history log. Unlike
// subscriptions there is no derived current value; every historical action is
// individually meaningful.
type EpisodeAction struct {
	bun.BaseModel `bun:"table:episode_actions,alias:ea"`

	ID        int       `bun:",pk,nullzero" json:"-"`
	CreatedAt time.Time `json:"-"`
	UserID    int       `json:"-"`
	DeviceID  *int      `json:"-"`
	EpisodeID int       `json:"-"`
	Action    string    `bun:",nullzero" json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Started   *int      `json:"started,omitempty"`
	Position  *int      `json:"position,omitempty"`
	Total     *int      `json:"total,omitempty"`

	Device  *Device  `bun:"rel:belongs-to,join:device_id=id" json:"-"`
	Episode *Episode `bun:"rel:belongs-to,join:episode_id=id" json:"-"`
}
