package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Podcast is a canonical feed identity, addressed by its normalized URL. The
// descriptive fields are filled in lazily by the directory glue; the sync
// protocol only ever needs the URL.
type Podcast struct {
	bun.BaseModel `bun:"table:podcasts,alias:p"`

	ID          int       `bun:",pk,nullzero" json:"-"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
	URL         string    `bun:"url,nullzero" json:"url"`
	Title       string    `json:"title,omitempty"`
	Link        string    `json:"website,omitempty"`
	Description string    `json:"description,omitempty"`
	LogoURL     string    `json:"logo_url,omitempty"`

	Episodes []*Episode `bun:"rel:has-many,join:id=podcast_id" json:"-"`
}

// Episode is a canonical feed item identity, addressed by its normalized URL
// within a podcast.
type Episode struct {
	bun.BaseModel `bun:"table:episodes,alias:e"`

	ID        int       `bun:",pk,nullzero" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
	PodcastID int       `json:"-"`
	URL       string    `bun:"url,nullzero" json:"url"`
	Title     string    `json:"title,omitempty"`
	Link      string    `json:"website,omitempty"`

	Podcast *Podcast `bun:"rel:belongs-to,join:podcast_id=id" json:"-"`
}
