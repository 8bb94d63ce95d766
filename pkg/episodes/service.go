package episodes

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/HusseinSarrar05/mygpo/pkg/devices"
	"github.com/HusseinSarrar05/mygpo/pkg/models"
	"github.com/HusseinSarrar05/mygpo/pkg/podcasts"
)

// TimestampFormat is the wire format for episode action timestamps,
// interpreted as UTC.
const TimestampFormat = "2006-01-02T15:04:05"

// Service stores and queries the per-user episode action log.
type Service struct {
	db             *bun.DB
	deviceService  *devices.Service
	podcastService *podcasts.Service
}

// NewService creates a new episode action service.
func NewService(db *bun.DB) *Service {
	return &Service{
		db:             db,
		deviceService:  devices.NewService(db),
		podcastService: podcasts.NewService(db),
	}
}

// History is one page of the episode action log plus the checkpoint
// the client must present to continue. A page with fewer than the
// requested limit entries means the log is drained.
type History struct {
	Actions    []*models.EpisodeAction
	Checkpoint time.Time
}

// ActionsSince returns actions strictly newer than the checkpoint in
// (timestamp, insertion) order, at most limit entries. When the limit
// cuts inside a run of equal timestamps the page is extended to the end
// of the run, so continuing from the returned checkpoint can never skip
// an event.
func (s *Service) ActionsSince(ctx context.Context, userID int, since time.Time, limit int) (*History, error) {
	// Captured before reading so a concurrent append can't slip behind
	// the checkpoint we return for an empty page.
	now := time.Now().UTC()

	var actions []*models.EpisodeAction
	err := s.db.NewSelect().
		Model(&actions).
		Relation("Episode").
		Relation("Episode.Podcast").
		Relation("Device").
		Where("ea.user_id = ?", userID).
		Where("ea.timestamp > ?", since).
		Order("ea.timestamp ASC", "ea.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if len(actions) == 0 {
		checkpoint := now
		if checkpoint.Before(since) {
			checkpoint = since
		}
		return &History{Actions: []*models.EpisodeAction{}, Checkpoint: checkpoint}, nil
	}

	if len(actions) == limit {
		last := actions[len(actions)-1]

		var tail []*models.EpisodeAction
		err = s.db.NewSelect().
			Model(&tail).
			Relation("Episode").
			Relation("Episode.Podcast").
			Relation("Device").
			Where("ea.user_id = ?", userID).
			Where("ea.timestamp = ?", last.Timestamp).
			Where("ea.id > ?", last.ID).
			Order("ea.id ASC").
			Scan(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		actions = append(actions, tail...)
	}

	return &History{
		Actions:    actions,
		Checkpoint: actions[len(actions)-1].Timestamp,
	}, nil
}

// UploadedAction is one entry of an uploaded episode action batch,
// before validation.
type UploadedAction struct {
	Podcast   string  `json:"podcast"`
	Episode   string  `json:"episode"`
	Device    string  `json:"device"`
	Action    string  `json:"action"`
	Timestamp string  `json:"timestamp"`
	Started   *int    `json:"started"`
	Position  *int    `json:"position"`
	Total     *int    `json:"total"`
}

// RejectedAction points at one entry of an uploaded batch that failed
// validation, with the reason the client needs to fix it.
type RejectedAction struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BatchResult reports the per-event outcome of an uploaded batch.
// Indexes refer to positions in the submitted array.
type BatchResult struct {
	Accepted   []int
	Duplicates []int
	Rejected   []RejectedAction
	Timestamp  time.Time
}

// RecordBatch validates and appends uploaded episode actions. Events
// are judged independently: an invalid entry lands in the rejected
// list while its siblings are still stored. Exact duplicates of rows
// already in the log are reported as no-ops so client retries never
// double-count.
func (s *Service) RecordBatch(ctx context.Context, userID int, events []UploadedAction) (*BatchResult, error) {
	now := time.Now().UTC().Truncate(time.Second)
	result := &BatchResult{
		Accepted:   []int{},
		Duplicates: []int{},
		Rejected:   []RejectedAction{},
		Timestamp:  now,
	}

	for i, event := range events {
		entry, reason := s.validate(ctx, userID, event, now)
		if reason != "" {
			result.Rejected = append(result.Rejected, RejectedAction{Index: i, Reason: reason})
			continue
		}

		// One implicit transaction per event: a dropped connection
		// leaves a well-defined committed prefix behind.
		res, err := s.db.NewInsert().
			Model(entry).
			On("CONFLICT (user_id, IFNULL(device_id, 0), episode_id, action, timestamp) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		inserted, err := res.RowsAffected()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if inserted == 0 {
			result.Duplicates = append(result.Duplicates, i)
		} else {
			result.Accepted = append(result.Accepted, i)
		}
	}

	return result, nil
}

// validate turns an uploaded event into a log row, or a rejection
// reason. Entities referenced for the first time are created here, so
// a valid event can always be stored.
func (s *Service) validate(ctx context.Context, userID int, event UploadedAction, now time.Time) (*models.EpisodeAction, string) {
	if !models.ValidEpisodeAction(event.Action) {
		return nil, fmt.Sprintf("unknown action %q", event.Action)
	}

	if event.Action != models.EpisodeActionPlay && (event.Started != nil || event.Position != nil || event.Total != nil) {
		return nil, fmt.Sprintf("playback markers are only valid for play actions, not %q", event.Action)
	}
	if (event.Started != nil || event.Total != nil) && event.Position == nil {
		return nil, "started and total require position"
	}
	if event.Started != nil && event.Position != nil && *event.Started > *event.Position {
		return nil, "started must not exceed position"
	}
	if event.Position != nil && event.Total != nil && *event.Position > *event.Total {
		return nil, "position must not exceed total"
	}
	if event.Position != nil && *event.Position < 0 {
		return nil, "position must not be negative"
	}

	timestamp := now
	if event.Timestamp != "" {
		parsed, err := parseTimestamp(event.Timestamp)
		if err != nil {
			return nil, fmt.Sprintf("unparseable timestamp %q", event.Timestamp)
		}
		timestamp = parsed
	}

	podcast, err := s.podcastService.LookupOrCreatePodcast(ctx, event.Podcast)
	if err != nil {
		return nil, fmt.Sprintf("invalid podcast url %q", event.Podcast)
	}
	episode, err := s.podcastService.LookupOrCreateEpisode(ctx, podcast, event.Episode)
	if err != nil {
		return nil, fmt.Sprintf("invalid episode url %q", event.Episode)
	}

	entry := &models.EpisodeAction{
		CreatedAt: now,
		UserID:    userID,
		EpisodeID: episode.ID,
		Action:    event.Action,
		Timestamp: timestamp,
		Started:   event.Started,
		Position:  event.Position,
		Total:     event.Total,
	}

	if event.Device != "" {
		device, err := s.deviceService.ResolveOrCreate(ctx, userID, event.Device, devices.Defaults{})
		if err != nil {
			return nil, fmt.Sprintf("invalid device id %q", event.Device)
		}
		entry.DeviceID = &device.ID
	}

	return entry, ""
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(TimestampFormat, raw); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}
