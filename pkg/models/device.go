package models

import (
	"regexp"
	"time"

	"github.com/uptrace/bun"
)

const (
	DeviceTypeDesktop = "desktop"
	DeviceTypeLaptop  = "laptop"
	DeviceTypeMobile  = "mobile"
	DeviceTypeServer  = "server"
	DeviceTypeOther   = "other"
)

// DeviceTypes lists the accepted device type tags.
var DeviceTypes = []string{
	DeviceTypeDesktop,
	DeviceTypeLaptop,
	DeviceTypeMobile,
	DeviceTypeServer,
	DeviceTypeOther,
}

var deviceUIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// MaxDeviceUIDLength bounds the client-chosen device identifier.
const MaxDeviceUIDLength = 64

// ValidDeviceUID reports whether uid is a well-formed client-chosen device
// identifier: letters, digits, underscore, and dash only.
func ValidDeviceUID(uid string) bool {
	return uid != "" && len(uid) <= MaxDeviceUIDLength && deviceUIDRE.MatchString(uid)
}

// ValidDeviceType reports whether t is one of the accepted device type tags.
func ValidDeviceType(t string) bool {
	for _, dt := range DeviceTypes {
		if t == dt {
			return true
		}
	}
	return false
}

// Device is a client endpoint owned by a user. Devices are created on first
// reference by a valid uid and never silently deleted; deactivation is an
// explicit operation.
type Device struct {
	bun.BaseModel `bun:"table:devices,alias:d"`

	ID          int       `bun:",pk,nullzero" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	UserID      int       `json:"-"`
	UID         string    `bun:"uid,nullzero" json:"id"`
	Caption     string    `json:"caption"`
	Type        string    `bun:",nullzero" json:"type"`
	SyncGroupID *string   `json:"-"`
	Deactivated bool      `json:"-"`

	SyncGroup *SyncGroup `bun:"rel:belongs-to,join:sync_group_id=id" json:"-"`
}

// SyncGroup links devices of one user so their subscription actions merge into
// a single logical subscriber. A group always has at least two members;
// unlinking down to one dissolves it.
type SyncGroup struct {
	bun.BaseModel `bun:"table:sync_groups,alias:sg"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    int       `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Devices []*Device `bun:"rel:has-many,join:id=sync_group_id" json:"devices,omitempty"`
}
