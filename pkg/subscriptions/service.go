package subscriptions

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/HusseinSarrar05/mygpo/pkg/devices"
	"github.com/HusseinSarrar05/mygpo/pkg/models"
	"github.com/HusseinSarrar05/mygpo/pkg/podcasts"
)

// Service derives subscription state from the append-only action log.
type Service struct {
	db             *bun.DB
	deviceService  *devices.Service
	podcastService *podcasts.Service
}

// NewService creates a new subscription service.
func NewService(db *bun.DB) *Service {
	return &Service{
		db:             db,
		deviceService:  devices.NewService(db),
		podcastService: podcasts.NewService(db),
	}
}

// Current returns the podcasts the device is subscribed to right now:
// for every podcast referenced by the device's sync scope, the latest
// action decides membership. Results are ordered by feed URL.
func (s *Service) Current(ctx context.Context, device *models.Device) ([]*models.Podcast, error) {
	actions, err := s.scopeActions(ctx, device)
	if err != nil {
		return nil, err
	}

	state := reduceLog(actions)

	var subscribed []*models.Podcast
	for _, action := range state {
		if action.Action == models.SubscriptionActionSubscribe {
			subscribed = append(subscribed, action.Podcast)
		}
	}
	sort.Slice(subscribed, func(i, j int) bool {
		return subscribed[i].URL < subscribed[j].URL
	})
	return subscribed, nil
}

// CountForDevice implements devices.SubscriptionCounter.
func (s *Service) CountForDevice(ctx context.Context, device *models.Device) (int, error) {
	current, err := s.Current(ctx, device)
	if err != nil {
		return 0, err
	}
	return len(current), nil
}

// Delta is the catch-up payload for a device: feed URLs to add and
// remove relative to the device's state as of its last checkpoint, and
// the new checkpoint to present next time.
type Delta struct {
	Add        []string
	Remove     []string
	Checkpoint time.Time
}

// DeltaSince computes the subscription changes visible after the given
// checkpoint. A podcast only appears when its net membership differs
// from the state as of the checkpoint; subscribe/unsubscribe flapping
// inside the window produces no entry.
func (s *Service) DeltaSince(ctx context.Context, device *models.Device, since time.Time) (*Delta, error) {
	// Captured before reading so a write committed during the read can
	// never end up older than the checkpoint we hand out.
	now := time.Now().UTC()

	actions, err := s.scopeActions(ctx, device)
	if err != nil {
		return nil, err
	}

	var windowed, prior []*models.SubscriptionAction
	for _, action := range actions {
		if action.Timestamp.After(since) {
			windowed = append(windowed, action)
		} else {
			prior = append(prior, action)
		}
	}

	before := reduceLog(prior)
	after := reduceLog(actions)

	delta := &Delta{Add: []string{}, Remove: []string{}, Checkpoint: now}
	seen := map[int]bool{}
	for _, action := range windowed {
		if seen[action.PodcastID] {
			continue
		}
		seen[action.PodcastID] = true

		subscribedBefore := false
		if prev, ok := before[action.PodcastID]; ok {
			subscribedBefore = prev.Action == models.SubscriptionActionSubscribe
		}
		current := after[action.PodcastID]
		subscribedNow := current.Action == models.SubscriptionActionSubscribe

		switch {
		case subscribedNow && !subscribedBefore:
			delta.Add = append(delta.Add, current.Podcast.URL)
		case !subscribedNow && subscribedBefore:
			delta.Remove = append(delta.Remove, current.Podcast.URL)
		}

		if current.Timestamp.After(delta.Checkpoint) {
			delta.Checkpoint = current.Timestamp
		}
	}

	sort.Strings(delta.Add)
	sort.Strings(delta.Remove)
	return delta, nil
}

// URLRewrite records how a submitted feed URL was canonicalized. An
// empty Normalized means the URL was rejected.
type URLRewrite struct {
	Original   string
	Normalized string
}

// ApplyResult reports the outcome of an uploaded subscription batch.
type ApplyResult struct {
	Rewrites  []URLRewrite
	Timestamp time.Time
}

// ApplyBatch appends subscribe actions for the add list and unsubscribe
// actions for the remove list, all stamped with the server-received
// time. URLs that can't be normalized are reported as rewrites to the
// empty string and skipped; the rest of the batch still applies.
// Resubmitting the same batch is a no-op thanks to the log's dedup
// index.
func (s *Service) ApplyBatch(ctx context.Context, device *models.Device, add, remove []string) (*ApplyResult, error) {
	now := time.Now().UTC().Truncate(time.Second)
	result := &ApplyResult{Timestamp: now}

	apply := func(urls []string, action string) error {
		for _, raw := range urls {
			normalized, err := podcasts.NormalizeURL(raw)
			if err != nil {
				result.Rewrites = append(result.Rewrites, URLRewrite{Original: raw})
				continue
			}
			if normalized != raw {
				result.Rewrites = append(result.Rewrites, URLRewrite{Original: raw, Normalized: normalized})
			}

			podcast, err := s.podcastService.LookupOrCreatePodcast(ctx, normalized)
			if err != nil {
				return err
			}

			// Each append commits on its own; a dropped connection
			// mid-batch leaves a clean prefix behind.
			entry := &models.SubscriptionAction{
				CreatedAt: now,
				DeviceID:  device.ID,
				PodcastID: podcast.ID,
				Action:    action,
				Timestamp: now,
			}
			_, err = s.db.NewInsert().
				Model(entry).
				On("CONFLICT (device_id, podcast_id, action, timestamp) DO NOTHING").
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	if err := apply(add, models.SubscriptionActionSubscribe); err != nil {
		return nil, err
	}
	if err := apply(remove, models.SubscriptionActionUnsubscribe); err != nil {
		return nil, err
	}

	return result, nil
}

// scopeActions loads the full action log for the device's sync scope,
// with podcast and device rows attached.
func (s *Service) scopeActions(ctx context.Context, device *models.Device) ([]*models.SubscriptionAction, error) {
	deviceIDs, err := s.deviceService.GroupDeviceIDs(ctx, device)
	if err != nil {
		return nil, err
	}

	var actions []*models.SubscriptionAction
	err = s.db.NewSelect().
		Model(&actions).
		Relation("Podcast").
		Relation("Device").
		Where("sa.device_id IN (?)", bun.In(deviceIDs)).
		Order("sa.timestamp ASC", "sa.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return actions, nil
}

// reduceLog picks the winning action per podcast. Latest timestamp
// wins; at equal timestamps unsubscribe beats subscribe, then the
// lexically smaller device uid, then the later insert. The rule is
// fixed so replaying the log always converges on the same state.
func reduceLog(actions []*models.SubscriptionAction) map[int]*models.SubscriptionAction {
	state := map[int]*models.SubscriptionAction{}
	for _, action := range actions {
		incumbent, ok := state[action.PodcastID]
		if !ok || beats(action, incumbent) {
			state[action.PodcastID] = action
		}
	}
	return state
}

func beats(a, b *models.SubscriptionAction) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	if a.Action != b.Action {
		return a.Action == models.SubscriptionActionUnsubscribe
	}
	if a.Device != nil && b.Device != nil && a.Device.UID != b.Device.UID {
		return a.Device.UID < b.Device.UID
	}
	return a.ID > b.ID
}
