package podcasts

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/HusseinSarrar05/mygpo/pkg/migrations"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestLookupOrCreatePodcast(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	podcast, err := svc.LookupOrCreatePodcast(ctx, "https://example.com/feed.xml")
	require.NoError(t, err)
	require.NotZero(t, podcast.ID)
	assert.Equal(t, "https://example.com/feed.xml", podcast.URL)

	// URL variants resolve to the same record.
	again, err := svc.LookupOrCreatePodcast(ctx, "HTTPS://EXAMPLE.COM:443/feed.xml#anchor")
	require.NoError(t, err)
	assert.Equal(t, podcast.ID, again.ID)

	_, err = svc.LookupOrCreatePodcast(ctx, "not a url")
	require.Error(t, err)
}

func TestLookupOrCreateEpisode(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	podcast, err := svc.LookupOrCreatePodcast(ctx, "https://example.com/feed.xml")
	require.NoError(t, err)

	episode, err := svc.LookupOrCreateEpisode(ctx, podcast, "https://example.com/ep1.mp3")
	require.NoError(t, err)
	require.NotZero(t, episode.ID)
	assert.Equal(t, podcast.ID, episode.PodcastID)

	again, err := svc.LookupOrCreateEpisode(ctx, podcast, "https://example.com/ep1.mp3")
	require.NoError(t, err)
	assert.Equal(t, episode.ID, again.ID)

	// The same URL under a different podcast is a different episode.
	other, err := svc.LookupOrCreatePodcast(ctx, "https://other.example.com/feed.xml")
	require.NoError(t, err)

	otherEpisode, err := svc.LookupOrCreateEpisode(ctx, other, "https://example.com/ep1.mp3")
	require.NoError(t, err)
	assert.NotEqual(t, episode.ID, otherEpisode.ID)
}
