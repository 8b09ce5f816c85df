package db

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/model"
)

const scheduleColumns = `
	id, created_by, device_id, group_id, from_group,
	content_url, content_type, title, rotation, mirror, muted, thumbnail_url,
	video_format, video_width, video_height, video_size_bytes, video_duration_ms,
	scheduled_at, timezone, duration_ms, repeat, status, created_at, updated_at`

func (s *pgStore) CreateScheduleEntry(e model.ScheduleEntry) (model.ScheduleEntry, error) {
	var out model.ScheduleEntry
	q := `
	INSERT INTO schedule_entries
	  (created_by, device_id, group_id, from_group,
	   content_url, content_type, title, rotation, mirror, muted, thumbnail_url,
	   video_format, video_width, video_height, video_size_bytes, video_duration_ms,
	   scheduled_at, timezone, duration_ms, repeat, status, created_at, updated_at)
	VALUES
	  ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,now(),now())
	RETURNING ` + scheduleColumns + `;`
	err := s.db.Get(&out, q,
		e.CreatedBy, e.DeviceID, e.GroupID, e.FromGroup,
		e.ContentURL, e.ContentType, e.Title, e.Rotation, e.Mirror, e.Muted, e.ThumbnailURL,
		e.VideoFormat, e.VideoWidth, e.VideoHeight, e.VideoSizeBytes, e.VideoDurationMs,
		e.ScheduledAt.UTC(), e.Timezone, e.DurationMs, e.Repeat, e.Status)
	if err != nil {
		log.Error().Err(err).Msg("CreateScheduleEntry failed")
		return model.ScheduleEntry{}, err
	}
	return out, nil
}

func (s *pgStore) GetScheduleEntry(id int) (model.ScheduleEntry, error) {
	var e model.ScheduleEntry
	err := s.db.Get(&e, `SELECT `+scheduleColumns+` FROM schedule_entries WHERE id = $1`, id)
	if err != nil && err != sql.ErrNoRows {
		log.Error().Err(err).Int("schedule_id", id).Msg("GetScheduleEntry failed")
	}
	return e, err
}

func (s *pgStore) ListSchedules(ownerID int) ([]model.ScheduleEntry, error) {
	var out []model.ScheduleEntry
	err := s.db.Select(&out, `
	SELECT `+scheduleColumns+`
	  FROM schedule_entries
	 WHERE created_by = $1
	 ORDER BY scheduled_at ASC, id ASC;`, ownerID)
	if err != nil {
		log.Error().Err(err).Msg("ListSchedules failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) ListSchedulesForDevice(ownerID, deviceID int) ([]model.ScheduleEntry, error) {
	var out []model.ScheduleEntry
	err := s.db.Select(&out, `
	SELECT `+scheduleColumns+`
	  FROM schedule_entries
	 WHERE created_by = $1 AND device_id = $2
	 ORDER BY scheduled_at ASC, id ASC;`, ownerID, deviceID)
	if err != nil {
		log.Error().Err(err).Msg("ListSchedulesForDevice failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) ListSchedulesForGroup(ownerID, groupID int) ([]model.ScheduleEntry, error) {
	var out []model.ScheduleEntry
	err := s.db.Select(&out, `
	SELECT `+scheduleColumns+`
	  FROM schedule_entries
	 WHERE created_by = $1 AND group_id = $2
	 ORDER BY scheduled_at ASC, id ASC;`, ownerID, groupID)
	if err != nil {
		log.Error().Err(err).Msg("ListSchedulesForGroup failed")
		return nil, err
	}
	return out, nil
}

// PendingSchedules returns every pending entry for the owner, optionally
// narrowed to one device. Input set for the conflict resolver.
func (s *pgStore) PendingSchedules(ownerID int, deviceID *int) ([]model.ScheduleEntry, error) {
	var out []model.ScheduleEntry
	var err error
	if deviceID != nil {
		err = s.db.Select(&out, `
		SELECT `+scheduleColumns+`
		  FROM schedule_entries
		 WHERE created_by = $1 AND status = 'pending' AND device_id = $2
		 ORDER BY scheduled_at ASC, id ASC;`, ownerID, *deviceID)
	} else {
		err = s.db.Select(&out, `
		SELECT `+scheduleColumns+`
		  FROM schedule_entries
		 WHERE created_by = $1 AND status = 'pending'
		 ORDER BY scheduled_at ASC, id ASC;`, ownerID)
	}
	if err != nil {
		log.Error().Err(err).Msg("PendingSchedules failed")
		return nil, err
	}
	return out, nil
}

// DueSchedules returns pending entries whose instant has passed, in
// ascending scheduled-instant order.
func (s *pgStore) DueSchedules(ownerID int, now time.Time) ([]model.ScheduleEntry, error) {
	var out []model.ScheduleEntry
	err := s.db.Select(&out, `
	SELECT `+scheduleColumns+`
	  FROM schedule_entries
	 WHERE created_by = $1 AND status = 'pending' AND scheduled_at <= $2
	 ORDER BY scheduled_at ASC, id ASC;`, ownerID, now.UTC())
	if err != nil {
		log.Error().Err(err).Msg("DueSchedules failed")
		return nil, err
	}
	return out, nil
}

// UpdateScheduleEntry merges non-null patch fields into the row. Returns
// sql.ErrNoRows when id/owner do not match.
func (s *pgStore) UpdateScheduleEntry(id, ownerID int, patch SchedulePatch) (model.ScheduleEntry, error) {
	var out model.ScheduleEntry
	var scheduledAt *time.Time
	if patch.ScheduledAt != nil {
		utc := patch.ScheduledAt.UTC()
		scheduledAt = &utc
	}
	err := s.db.Get(&out, `
	UPDATE schedule_entries
	   SET content_url   = COALESCE($3, content_url),
	       content_type  = COALESCE($4, content_type),
	       title         = COALESCE($5, title),
	       rotation      = COALESCE($6, rotation),
	       mirror        = COALESCE($7, mirror),
	       muted         = COALESCE($8, muted),
	       thumbnail_url = COALESCE($9, thumbnail_url),
	       scheduled_at  = COALESCE($10, scheduled_at),
	       timezone      = COALESCE($11, timezone),
	       duration_ms   = COALESCE($12, duration_ms),
	       repeat        = COALESCE($13, repeat),
	       updated_at    = now()
	 WHERE id = $1 AND created_by = $2
	RETURNING `+scheduleColumns+`;`,
		id, ownerID,
		patch.ContentURL, patch.ContentType, patch.Title, patch.Rotation,
		patch.Mirror, patch.Muted, patch.ThumbnailURL,
		scheduledAt, patch.Timezone, patch.DurationMs, patch.Repeat)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Int("schedule_id", id).Msg("UpdateScheduleEntry failed")
		}
		return model.ScheduleEntry{}, err
	}
	return out, nil
}

func (s *pgStore) UpdateScheduleStatus(id int, status string) error {
	_, err := s.db.Exec(`
	UPDATE schedule_entries
	   SET status = $2, updated_at = now()
	 WHERE id = $1;`, id, status)
	if err != nil {
		log.Error().Err(err).Int("schedule_id", id).Msg("UpdateScheduleStatus failed")
	}
	return err
}

// RescheduleEntry advances a repeating entry: new instant, status forced
// back to pending.
func (s *pgStore) RescheduleEntry(id int, next time.Time) error {
	_, err := s.db.Exec(`
	UPDATE schedule_entries
	   SET scheduled_at = $2, status = 'pending', updated_at = now()
	 WHERE id = $1;`, id, next.UTC())
	if err != nil {
		log.Error().Err(err).Int("schedule_id", id).Msg("RescheduleEntry failed")
	}
	return err
}

// DeleteScheduleEntry hard-deletes and returns the deleted row so callers
// can run downstream cleanup (e.g. clearing a now-showing entry).
func (s *pgStore) DeleteScheduleEntry(id, ownerID int) (model.ScheduleEntry, error) {
	var out model.ScheduleEntry
	err := s.db.Get(&out, `
	DELETE FROM schedule_entries
	 WHERE id = $1 AND created_by = $2
	RETURNING `+scheduleColumns+`;`, id, ownerID)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Error().Err(err).Int("schedule_id", id).Msg("DeleteScheduleEntry failed")
		}
		return model.ScheduleEntry{}, err
	}
	return out, nil
}
