package devices

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/HusseinSarrar05/mygpo/pkg/errcodes"
	"github.com/HusseinSarrar05/mygpo/pkg/migrations"
	"github.com/HusseinSarrar05/mygpo/pkg/models"
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

func createTestUser(ctx context.Context, t *testing.T, db *bun.DB, username string) *models.User {
	t.Helper()

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Username:     username,
		PasswordHash: "hash",
		IsActive:     true,
	}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	return user
}

func TestResolveOrCreate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(ctx, t, db, "alice")

	device, err := svc.ResolveOrCreate(ctx, user.ID, "phone-1", Defaults{Caption: "My Phone", Type: models.DeviceTypeMobile})
	require.NoError(t, err)
	require.NotZero(t, device.ID)
	assert.Equal(t, "phone-1", device.UID)
	assert.Equal(t, "My Phone", device.Caption)
	assert.Equal(t, models.DeviceTypeMobile, device.Type)

	t.Run("second resolve returns existing device", func(t *testing.T) {
		again, err := svc.ResolveOrCreate(ctx, user.ID, "phone-1", Defaults{Caption: "Other"})
		require.NoError(t, err)
		assert.Equal(t, device.ID, again.ID)
		assert.Equal(t, "My Phone", again.Caption)
	})

	t.Run("unknown type falls back to other", func(t *testing.T) {
		d, err := svc.ResolveOrCreate(ctx, user.ID, "toaster", Defaults{Type: "toaster"})
		require.NoError(t, err)
		assert.Equal(t, models.DeviceTypeOther, d.Type)
	})

	t.Run("malformed uid is rejected", func(t *testing.T) {
		for _, uid := range []string{"", "has space", "slash/y", "bang!", "ünicode"} {
			_, err := svc.ResolveOrCreate(ctx, user.ID, uid, Defaults{})
			require.Error(t, err, "uid %q", uid)

			var apiErr *errcodes.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "validation_error", apiErr.Code)
		}
	})
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(ctx, t, db, "alice")

	caption := "Work Laptop"
	deviceType := models.DeviceTypeLaptop
	device, err := svc.Update(ctx, user.ID, "laptop", UpdateOptions{Caption: &caption, Type: &deviceType})
	require.NoError(t, err)
	assert.Equal(t, "Work Laptop", device.Caption)
	assert.Equal(t, models.DeviceTypeLaptop, device.Type)

	// Only the given fields change.
	newCaption := "Home Laptop"
	device, err = svc.Update(ctx, user.ID, "laptop", UpdateOptions{Caption: &newCaption})
	require.NoError(t, err)
	assert.Equal(t, "Home Laptop", device.Caption)
	assert.Equal(t, models.DeviceTypeLaptop, device.Type)

	badType := "fridge"
	_, err = svc.Update(ctx, user.ID, "laptop", UpdateOptions{Type: &badType})
	require.Error(t, err)
}

func TestDeactivateHidesFromList(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(ctx, t, db, "alice")

	_, err := svc.ResolveOrCreate(ctx, user.ID, "a", Defaults{})
	require.NoError(t, err)
	_, err = svc.ResolveOrCreate(ctx, user.ID, "b", Defaults{})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, user.ID, "a"))

	devices, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "b", devices[0].UID)

	// The record itself survives deactivation.
	device, err := svc.Retrieve(ctx, user.ID, "a")
	require.NoError(t, err)
	assert.True(t, device.Deactivated)
}

func TestLink(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(ctx, t, db, "alice")

	mkDevice := func(uid string) *models.Device {
		d, err := svc.ResolveOrCreate(ctx, user.ID, uid, Defaults{})
		require.NoError(t, err)
		return d
	}

	t.Run("linking two fresh devices creates a group", func(t *testing.T) {
		a, b := mkDevice("l1-a"), mkDevice("l1-b")

		groupID, err := svc.Link(ctx, a, b)
		require.NoError(t, err)
		require.NotEmpty(t, groupID)

		ids, err := svc.GroupDeviceIDs(ctx, a)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{a.ID, b.ID}, ids)
	})

	t.Run("linking into an existing group joins it", func(t *testing.T) {
		a, b, c := mkDevice("l2-a"), mkDevice("l2-b"), mkDevice("l2-c")

		groupID, err := svc.Link(ctx, a, b)
		require.NoError(t, err)

		groupID2, err := svc.Link(ctx, b, c)
		require.NoError(t, err)
		assert.Equal(t, groupID, groupID2)

		ids, err := svc.GroupDeviceIDs(ctx, c)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{a.ID, b.ID, c.ID}, ids)
	})

	t.Run("merging two groups unions their members", func(t *testing.T) {
		a, b := mkDevice("l3-a"), mkDevice("l3-b")
		c, d := mkDevice("l3-c"), mkDevice("l3-d")

		g1, err := svc.Link(ctx, a, b)
		require.NoError(t, err)
		g2, err := svc.Link(ctx, c, d)
		require.NoError(t, err)

		merged, err := svc.Link(ctx, a, c)
		require.NoError(t, err)

		// The surviving group id is the lexically smaller one so the
		// merge result does not depend on argument order.
		expected := g1
		if g2 < g1 {
			expected = g2
		}
		assert.Equal(t, expected, merged)

		ids, err := svc.GroupDeviceIDs(ctx, &models.Device{ID: a.ID, SyncGroupID: &merged})
		require.NoError(t, err)
		assert.ElementsMatch(t, []int{a.ID, b.ID, c.ID, d.ID}, ids)

		// The losing group row is gone.
		count, err := db.NewSelect().Model((*models.SyncGroup)(nil)).Where("user_id = ?", user.ID).Count(ctx)
		require.NoError(t, err)
		assert.Positive(t, count)
	})

	t.Run("self link is rejected", func(t *testing.T) {
		a := mkDevice("l4-a")
		_, err := svc.Link(ctx, a, a)
		require.Error(t, err)
	})

	t.Run("cross user link is rejected", func(t *testing.T) {
		other := createTestUser(ctx, t, db, "link-bob")
		a := mkDevice("l5-a")
		b, err := svc.ResolveOrCreate(ctx, other.ID, "l5-b", Defaults{})
		require.NoError(t, err)

		_, err = svc.Link(ctx, a, b)
		require.Error(t, err)
	})
}

func TestLinkAssociativity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	// Merging (A+B)+C and (B+C)+A must produce the same membership.
	run := func(username string, order [][2]string) []int {
		user := createTestUser(ctx, t, db, username)
		devices := map[string]*models.Device{}
		for _, uid := range []string{"a", "b", "c"} {
			d, err := svc.ResolveOrCreate(ctx, user.ID, uid, Defaults{})
			require.NoError(t, err)
			devices[uid] = d
		}
		for _, pair := range order {
			_, err := svc.Link(ctx, devices[pair[0]], devices[pair[1]])
			require.NoError(t, err)
		}
		ids, err := svc.GroupDeviceIDs(ctx, devices["a"])
		require.NoError(t, err)
		return ids
	}

	first := run("assoc-1", [][2]string{{"a", "b"}, {"a", "c"}})
	second := run("assoc-2", [][2]string{{"b", "c"}, {"c", "a"}})
	assert.Len(t, first, 3)
	assert.Len(t, second, 3)
}

func TestUnlink(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(ctx, t, db, "alice")

	mkDevice := func(uid string) *models.Device {
		d, err := svc.ResolveOrCreate(ctx, user.ID, uid, Defaults{})
		require.NoError(t, err)
		return d
	}

	a, b, c := mkDevice("a"), mkDevice("b"), mkDevice("c")
	groupID, err := svc.Link(ctx, a, b)
	require.NoError(t, err)
	_, err = svc.Link(ctx, b, c)
	require.NoError(t, err)

	// Removing one of three leaves the group intact.
	require.NoError(t, svc.Unlink(ctx, a))
	assert.Nil(t, a.SyncGroupID)

	ids, err := svc.GroupDeviceIDs(ctx, &models.Device{ID: b.ID, SyncGroupID: &groupID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{b.ID, c.ID}, ids)

	// Removing the second-to-last member dissolves the group.
	require.NoError(t, svc.Unlink(ctx, b))

	count, err := db.NewSelect().Model((*models.SyncGroup)(nil)).Where("id = ?", groupID).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	last, err := svc.Retrieve(ctx, user.ID, "c")
	require.NoError(t, err)
	assert.Nil(t, last.SyncGroupID)

	// Unlinking an ungrouped device is a no-op.
	require.NoError(t, svc.Unlink(ctx, a))
}

func TestGroupDeviceIDsUngrouped(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	user := createTestUser(ctx, t, db, "alice")

	device, err := svc.ResolveOrCreate(ctx, user.ID, "solo", Defaults{})
	require.NoError(t, err)

	ids, err := svc.GroupDeviceIDs(ctx, device)
	require.NoError(t, err)
	assert.Equal(t, []int{device.ID}, ids)
}
