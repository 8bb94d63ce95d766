package podcasts

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/HusseinSarrar05/mygpo/pkg/models"
)

// Service handles podcast and episode identity.
type Service struct {
	db *bun.DB
}

// NewService creates a new podcast service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// LookupOrCreatePodcast resolves a feed URL to its canonical podcast
// record, creating it on first reference. The URL is normalized first
// so URL variants collapse onto one record.
func (s *Service) LookupOrCreatePodcast(ctx context.Context, rawURL string) (*models.Podcast, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	podcast := &models.Podcast{CreatedAt: now, UpdatedAt: now, URL: normalized}
	_, err = s.db.NewInsert().
		Model(podcast).
		On("CONFLICT (url) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// A conflicting insert leaves the model without an ID, so always
	// read the row back.
	podcast = &models.Podcast{}
	err = s.db.NewSelect().
		Model(podcast).
		Where("p.url = ?", normalized).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return podcast, nil
}

// LookupOrCreateEpisode resolves an episode URL within a podcast,
// creating the record on first reference.
func (s *Service) LookupOrCreateEpisode(ctx context.Context, podcast *models.Podcast, rawURL string) (*models.Episode, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	episode := &models.Episode{CreatedAt: now, UpdatedAt: now, PodcastID: podcast.ID, URL: normalized}
	_, err = s.db.NewInsert().
		Model(episode).
		On("CONFLICT (podcast_id, url) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	episode = &models.Episode{}
	err = s.db.NewSelect().
		Model(episode).
		Where("e.podcast_id = ?", podcast.ID).
		Where("e.url = ?", normalized).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return episode, nil
}
