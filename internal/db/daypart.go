package db

import (
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/model"
)

// DaypartDevices returns every paired device with daypart mode enabled,
// across all owners.
func (s *pgStore) DaypartDevices() ([]model.Device, error) {
	var out []model.Device
	err := s.db.Select(&out, `
	SELECT `+deviceColumns+`
	  FROM devices
	 WHERE daypart_enabled AND paired
	 ORDER BY id;`)
	if err != nil {
		log.Error().Err(err).Msg("DaypartDevices failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) SetDaypartContent(deviceID int, window string, contentID, priority int) error {
	_, err := s.db.Exec(`
	INSERT INTO daypart_contents (device_id, "window", content_id, priority)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (device_id, "window", content_id)
	DO UPDATE SET priority = $4;`, deviceID, window, contentID, priority)
	if err != nil {
		log.Error().Err(err).Int("device_id", deviceID).Str("window", window).Msg("SetDaypartContent failed")
	}
	return err
}

func (s *pgStore) RemoveDaypartContent(deviceID int, window string, contentID int) error {
	res, err := s.db.Exec(`
	DELETE FROM daypart_contents
	 WHERE device_id = $1 AND "window" = $2 AND content_id = $3;`, deviceID, window, contentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ResolveDaypartContent picks the highest-priority configured item for the
// (device, window) pair, falling back to the owner's flagged default.
// Returns nil when neither exists.
func (s *pgStore) ResolveDaypartContent(deviceID int, window string) (*model.Content, error) {
	var c model.Content
	err := s.db.Get(&c, `
	SELECT c.id, c.name, c.type, c.url, c.size_bytes, c.duration_ms, c.thumbnail_url, c.is_default, c.created_by, c.created_at
	  FROM daypart_contents dc
	  JOIN content c ON c.id = dc.content_id
	 WHERE dc.device_id = $1 AND dc."window" = $2
	 ORDER BY dc.priority ASC, dc.content_id ASC
	 LIMIT 1;`, deviceID, window)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error().Err(err).Int("device_id", deviceID).Str("window", window).Msg("ResolveDaypartContent failed")
		return nil, err
	}

	// owner default fallback
	err = s.db.Get(&c, `
	SELECT c.id, c.name, c.type, c.url, c.size_bytes, c.duration_ms, c.thumbnail_url, c.is_default, c.created_by, c.created_at
	  FROM content c
	  JOIN devices d ON d.created_by = c.created_by
	 WHERE d.id = $1 AND c.is_default
	 LIMIT 1;`, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Int("device_id", deviceID).Msg("default content lookup failed")
		return nil, err
	}
	return &c, nil
}
