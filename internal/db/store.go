// exposes a Store interface that is passed to API calls and engines
package db

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Luminet-Displays/luminet/internal/model"
)

// SchedulePatch carries the nullable fields of a schedule update; nil means
// "leave unchanged".
type SchedulePatch struct {
	ContentURL   *string
	ContentType  *string
	Title        *string
	Rotation     *int
	Mirror       *bool
	Muted        *bool
	ThumbnailURL *string
	ScheduledAt  *time.Time
	Timezone     *string
	DurationMs   *int64
	Repeat       *string
}

type Store interface {
	// user functions
	CreateUser(email, hashedPassword string, name *string) (int, error)
	GetUserByEmail(email string) (*model.User, error)
	GetUserByID(id int) (*model.User, error)
	UpdateUserProfile(id int, email string, name *string) error

	// device functions
	CreateDevice(name string, location *string, timezone string, createdBy int) (model.Device, error)
	GetDeviceByID(id int) (model.Device, error)
	GetDeviceBySerial(serial string) (model.Device, error)
	ListDevices(ownerID int) ([]model.Device, error)
	UpdateDevice(id int, name, location, timezone *string) error
	AssignSerialToDevice(id int, serial string) error
	PairDevice(id int) error
	SetDaypartEnabled(id int, enabled bool) error
	DeleteDevice(id, ownerID int) error

	// group functions
	CreateDeviceGroup(ownerID int, name string, description *string) (model.DeviceGroup, error)
	GetDeviceGroupByID(groupID int) (model.DeviceGroup, error)
	ListDeviceGroups(ownerID int) ([]model.DeviceGroup, error)
	DeleteDeviceGroup(ownerID, groupID int) error
	AddDeviceToGroup(ownerID, groupID, deviceID int) error
	RemoveDeviceFromGroup(ownerID, groupID, deviceID int) error
	DevicesInGroup(ownerID, groupID int) ([]model.Device, error)

	// content functions
	CreateContent(name, contentType, url string, sizeBytes, durationMs *int64, thumbnailURL *string, createdBy int) (model.Content, error)
	GetContentByID(id int) (model.Content, error)
	ListContent(ownerID int) ([]model.Content, error)
	SetDefaultContent(ownerID, contentID int) error
	DeleteContent(id, ownerID int) error

	// schedule repository
	CreateScheduleEntry(e model.ScheduleEntry) (model.ScheduleEntry, error)
	GetScheduleEntry(id int) (model.ScheduleEntry, error)
	ListSchedules(ownerID int) ([]model.ScheduleEntry, error)
	ListSchedulesForDevice(ownerID, deviceID int) ([]model.ScheduleEntry, error)
	ListSchedulesForGroup(ownerID, groupID int) ([]model.ScheduleEntry, error)
	PendingSchedules(ownerID int, deviceID *int) ([]model.ScheduleEntry, error)
	DueSchedules(ownerID int, now time.Time) ([]model.ScheduleEntry, error)
	UpdateScheduleEntry(id, ownerID int, patch SchedulePatch) (model.ScheduleEntry, error)
	UpdateScheduleStatus(id int, status string) error
	RescheduleEntry(id int, next time.Time) error
	DeleteScheduleEntry(id, ownerID int) (model.ScheduleEntry, error)

	// display history + now-showing snapshot
	RecordDisplayHistory(h model.DisplayHistory) error
	SaveCurrentDisplay(c model.CurrentDisplay) error
	ClearCurrentDisplay() error
	LoadCurrentDisplay() (*model.CurrentDisplay, error)

	// live sessions
	CreateLiveSession(ownerID int, title string, emergency bool, targets []int) (model.LiveSession, error)
	GetLiveSession(id int) (model.LiveSession, error)
	ListLiveSessions(ownerID int) ([]model.LiveSession, error)
	ListLiveSessionTargets(sessionID int) ([]int, error)
	ListLiveSessionViewers(sessionID int) ([]model.LiveSessionViewer, error)
	ListLiveSessionEvents(sessionID int) ([]model.LiveSessionEvent, error)
	HasActiveEmergencySession(ownerID int) (bool, error)
	EndLiveSession(id int, endedAt time.Time, reason string) error
	AddLiveSessionViewer(sessionID, deviceID int, joinedAt time.Time) (int, error)
	CloseLiveSessionViewer(sessionID, deviceID int, leftAt time.Time) (int, error)
	SetViewerQuality(sessionID, deviceID int, quality string) error
	RecordLiveSessionEvent(sessionID int, kind string, detail *string) error
	DeleteLiveSession(id, ownerID int) error

	// daypart configuration
	DaypartDevices() ([]model.Device, error)
	SetDaypartContent(deviceID int, window string, contentID, priority int) error
	RemoveDaypartContent(deviceID int, window string, contentID int) error
	ResolveDaypartContent(deviceID int, window string) (*model.Content, error)
	RecordDaypartHistory(h model.DaypartHistory) error
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore() Store {
	return &pgStore{db: DB}
}
