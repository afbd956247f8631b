package models

import (
	"time"

	"gorm.io/datatypes"
)

// UnknownAppVersion is stored when a heartbeat carries no app version.
const UnknownAppVersion = "unknown"

// LaunchEventType is the one event type the stats engine interprets.
const LaunchEventType = "GAME_LAUNCH"

// Column widths. They must match the size: tags below, since MySQL in strict
// mode rejects longer values.
const (
	UserIDSize     = 128
	SessionIDSize  = 36
	AppVersionSize = 64
	EventTypeSize  = 64
	OSSize         = 64
	OSVersionSize  = 128
	RAMSize        = 64
	GPUSize        = 255
	CPUSize        = 255
)

// Identity represents one installed launcher instance.
type Identity struct {
	UserID    string    `gorm:"primaryKey;size:128"`
	LastSeen  time.Time `gorm:"not null;index;precision:3"`
	Country   *string   `gorm:"size:16;index"`
	CreatedAt time.Time
}

// Session is one continuous run of the launcher. EndTime is advanced by every
// heartbeat that names the session.
type Session struct {
	ID         string    `gorm:"primaryKey;size:36"`
	UserID     string    `gorm:"not null;index;size:128"`
	StartTime  time.Time `gorm:"not null;precision:3"`
	EndTime    time.Time `gorm:"not null;index;precision:3"`
	AppVersion string    `gorm:"not null;size:64;default:unknown"`
}

// HardwareProfile holds the last hardware report of an identity.
type HardwareProfile struct {
	UserID    string `gorm:"primaryKey;size:128"`
	OS        string `gorm:"column:os;size:64"`
	OSVersion string `gorm:"column:os_version;size:128"`
	RAM       string `gorm:"column:ram;size:64"`
	GPU       string `gorm:"column:gpu;size:255"`
	CPU       string `gorm:"column:cpu;size:255"`
	UpdatedAt time.Time
}

// Event is an append-only fact reported by a launcher.
type Event struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	UserID    string         `gorm:"not null;index;size:128"`
	Type      string         `gorm:"not null;index;size:64"`
	Metadata  datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"not null;index;precision:3;autoCreateTime:false"`
}

// All lists every model for migrations.
func All() []any {
	return []any{&Identity{}, &Session{}, &HardwareProfile{}, &Event{}}
}
