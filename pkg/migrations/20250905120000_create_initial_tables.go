package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				username TEXT NOT NULL,
				email TEXT,
				password_hash TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_users_username ON users (username COLLATE NOCASE)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE sync_groups (
				id TEXT PRIMARY KEY,
				user_id INTEGER NOT NULL REFERENCES users (id),
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_sync_groups_user_id ON sync_groups (user_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE devices (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER NOT NULL REFERENCES users (id),
				uid TEXT NOT NULL,
				caption TEXT NOT NULL DEFAULT '',
				type TEXT NOT NULL DEFAULT 'other',
				sync_group_id TEXT REFERENCES sync_groups (id),
				deactivated BOOLEAN NOT NULL DEFAULT FALSE
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_devices_user_id_uid ON devices (user_id, uid)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_devices_sync_group_id ON devices (sync_group_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE podcasts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				url TEXT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				link TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				logo_url TEXT NOT NULL DEFAULT ''
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_podcasts_url ON podcasts (url)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE episodes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				podcast_id INTEGER NOT NULL REFERENCES podcasts (id),
				url TEXT NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				link TEXT NOT NULL DEFAULT ''
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_episodes_podcast_id_url ON episodes (podcast_id, url)`)
		if err != nil {
			return errors.WithStack(err)
		}
		// Append-only subscription log. The unique index makes exact-duplicate
		// resubmission a no-op instead of a second log entry.
		_, err = db.Exec(`
			CREATE TABLE subscription_actions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				device_id INTEGER NOT NULL REFERENCES devices (id),
				podcast_id INTEGER NOT NULL REFERENCES podcasts (id),
				action TEXT NOT NULL,
				timestamp TIMESTAMPTZ NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_subscription_actions_dedup ON subscription_actions (device_id, podcast_id, action, timestamp)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_subscription_actions_device_id_timestamp ON subscription_actions (device_id, timestamp)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_subscription_actions_podcast_id ON subscription_actions (podcast_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		// Append-only episode history log. device_id may be null (clients can
		// omit the originating device), so the dedup index coalesces it.
		_, err = db.Exec(`
			CREATE TABLE episode_actions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER NOT NULL REFERENCES users (id),
				device_id INTEGER REFERENCES devices (id),
				episode_id INTEGER NOT NULL REFERENCES episodes (id),
				action TEXT NOT NULL,
				timestamp TIMESTAMPTZ NOT NULL,
				started INTEGER,
				position INTEGER,
				total INTEGER
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_episode_actions_dedup ON episode_actions (user_id, IFNULL(device_id, 0), episode_id, action, timestamp)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_episode_actions_user_id_timestamp ON episode_actions (user_id, timestamp)`)
		if err != nil {
			return errors.WithStack(err)
		}
		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			DROP TABLE IF EXISTS episode_actions;
			DROP TABLE IF EXISTS subscription_actions;
			DROP TABLE IF EXISTS episodes;
			DROP TABLE IF EXISTS podcasts;
			DROP TABLE IF EXISTS devices;
			DROP TABLE IF EXISTS sync_groups;
			DROP TABLE IF EXISTS users;
		`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
