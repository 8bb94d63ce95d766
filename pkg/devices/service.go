package devices

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/HusseinSarrar05/mygpo/pkg/errcodes"
	"github.com/HusseinSarrar05/mygpo/pkg/models"
)

// Defaults are applied when a device is created on first reference.
type Defaults struct {
	Caption string
	Type    string
}

// Service handles the per-user device registry and sync groups.
type Service struct {
	db *bun.DB
}

// NewService creates a new device service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// ResolveOrCreate looks up a device by (user, uid), creating it with
// the given defaults on first reference. Malformed uids are rejected.
func (s *Service) ResolveOrCreate(ctx context.Context, userID int, uid string, defaults Defaults) (*models.Device, error) {
	if !models.ValidDeviceUID(uid) {
		return nil, errcodes.ValidationError("Invalid device ID: " + uid)
	}

	deviceType := defaults.Type
	if !models.ValidDeviceType(deviceType) {
		deviceType = models.DeviceTypeOther
	}

	now := time.Now()
	device := &models.Device{
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    userID,
		UID:       uid,
		Caption:   defaults.Caption,
		Type:      deviceType,
	}
	_, err := s.db.NewInsert().
		Model(device).
		On("CONFLICT (user_id, uid) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return s.Retrieve(ctx, userID, uid)
}

// Retrieve returns the device with the given uid, or not found.
func (s *Service) Retrieve(ctx context.Context, userID int, uid string) (*models.Device, error) {
	device := &models.Device{}
	err := s.db.NewSelect().
		Model(device).
		Where("d.user_id = ?", userID).
		Where("d.uid = ?", uid).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Device")
	} else if err != nil {
		return nil, errors.WithStack(err)
	}
	return device, nil
}

// List returns all active devices for a user, ordered by uid.
func (s *Service) List(ctx context.Context, userID int) ([]*models.Device, error) {
	var devices []*models.Device
	err := s.db.NewSelect().
		Model(&devices).
		Where("d.user_id = ?", userID).
		Where("d.deactivated = ?", false).
		Order("d.uid ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return devices, nil
}

// UpdateOptions holds the mutable device fields. Nil fields are left
// unchanged.
type UpdateOptions struct {
	Caption *string
	Type    *string
}

// Update changes a device's caption or type, creating the device if it
// does not exist yet.
func (s *Service) Update(ctx context.Context, userID int, uid string, opts UpdateOptions) (*models.Device, error) {
	if opts.Type != nil && !models.ValidDeviceType(*opts.Type) {
		return nil, errcodes.ValidationError("Invalid device type: " + *opts.Type)
	}

	device, err := s.ResolveOrCreate(ctx, userID, uid, Defaults{})
	if err != nil {
		return nil, err
	}

	q := s.db.NewUpdate().Model(device).WherePK()
	changed := false
	if opts.Caption != nil {
		device.Caption = *opts.Caption
		q = q.Column("caption")
		changed = true
	}
	if opts.Type != nil {
		device.Type = *opts.Type
		q = q.Column("type")
		changed = true
	}
	if !changed {
		return device, nil
	}

	device.UpdatedAt = time.Now()
	q = q.Column("updated_at")

	_, err = q.Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return device, nil
}

// Deactivate marks a device as inactive. The device and its events are
// kept; only the listing hides it.
func (s *Service) Deactivate(ctx context.Context, userID int, uid string) error {
	device, err := s.Retrieve(ctx, userID, uid)
	if err != nil {
		return err
	}

	_, err = s.db.NewUpdate().
		Model(device).
		Set("deactivated = ?", true).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// Link puts two devices of the same user into one sync group. Group
// merge is associative: when both devices already belong to groups the
// two groups are unioned, keeping the lexically smaller group id so
// repeated merges in any order settle on the same group.
func (s *Service) Link(ctx context.Context, a, b *models.Device) (string, error) {
	if a.UserID != b.UserID {
		return "", errcodes.ValidationError("Devices belong to different users")
	}
	if a.ID == b.ID {
		return "", errcodes.ValidationError("Cannot link a device to itself")
	}

	var groupID string
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		switch {
		case a.SyncGroupID == nil && b.SyncGroupID == nil:
			group := &models.SyncGroup{
				ID:        uuid.NewString(),
				UserID:    a.UserID,
				CreatedAt: time.Now(),
			}
			if _, err := tx.NewInsert().Model(group).Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
			groupID = group.ID
			return setGroup(ctx, tx, groupID, a.ID, b.ID)

		case a.SyncGroupID != nil && b.SyncGroupID == nil:
			groupID = *a.SyncGroupID
			return setGroup(ctx, tx, groupID, b.ID)

		case a.SyncGroupID == nil && b.SyncGroupID != nil:
			groupID = *b.SyncGroupID
			return setGroup(ctx, tx, groupID, a.ID)

		default:
			if *a.SyncGroupID == *b.SyncGroupID {
				groupID = *a.SyncGroupID
				return nil
			}
			keep, drop := *a.SyncGroupID, *b.SyncGroupID
			if drop < keep {
				keep, drop = drop, keep
			}
			groupID = keep

			_, err := tx.NewUpdate().
				Model((*models.Device)(nil)).
				Set("sync_group_id = ?", keep).
				Where("sync_group_id = ?", drop).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			_, err = tx.NewDelete().
				Model((*models.SyncGroup)(nil)).
				Where("id = ?", drop).
				Exec(ctx)
			return errors.WithStack(err)
		}
	})
	if err != nil {
		return "", err
	}

	a.SyncGroupID = &groupID
	b.SyncGroupID = &groupID
	return groupID, nil
}

// Unlink removes a device from its sync group. A group left with a
// single member is dissolved since there is nothing left to sync with.
func (s *Service) Unlink(ctx context.Context, device *models.Device) error {
	if device.SyncGroupID == nil {
		return nil
	}
	groupID := *device.SyncGroupID

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*models.Device)(nil)).
			Set("sync_group_id = NULL").
			Where("id = ?", device.ID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		count, err := tx.NewSelect().
			Model((*models.Device)(nil)).
			Where("sync_group_id = ?", groupID).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if count <= 1 {
			_, err = tx.NewUpdate().
				Model((*models.Device)(nil)).
				Set("sync_group_id = NULL").
				Where("sync_group_id = ?", groupID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}

			_, err = tx.NewDelete().
				Model((*models.SyncGroup)(nil)).
				Where("id = ?", groupID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	device.SyncGroupID = nil
	return nil
}

// GroupDeviceIDs returns the ids of all devices sharing the device's
// subscription state. An ungrouped device is its own scope.
func (s *Service) GroupDeviceIDs(ctx context.Context, device *models.Device) ([]int, error) {
	if device.SyncGroupID == nil {
		return []int{device.ID}, nil
	}

	var ids []int
	err := s.db.NewSelect().
		Model((*models.Device)(nil)).
		Column("id").
		Where("sync_group_id = ?", *device.SyncGroupID).
		Order("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ids, nil
}

func setGroup(ctx context.Context, tx bun.Tx, groupID string, deviceIDs ...int) error {
	_, err := tx.NewUpdate().
		Model((*models.Device)(nil)).
		Set("sync_group_id = ?", groupID).
		Where("id IN (?)", bun.In(deviceIDs)).
		Exec(ctx)
	return errors.WithStack(err)
}
