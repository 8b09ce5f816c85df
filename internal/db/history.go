package db

import (
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/model"
)

func (s *pgStore) RecordDisplayHistory(h model.DisplayHistory) error {
	_, err := s.db.Exec(`
	INSERT INTO display_history (user_id, device_id, schedule_id, content_url, content_type, source, displayed_at, displays)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		h.UserID, h.DeviceID, h.ScheduleID, h.ContentURL, h.ContentType, h.Source, h.DisplayedAt.UTC(), h.Displays)
	if err != nil {
		log.Error().Err(err).Msg("RecordDisplayHistory failed")
	}
	return err
}

// SaveCurrentDisplay upserts the singleton now-showing snapshot row.
func (s *pgStore) SaveCurrentDisplay(c model.CurrentDisplay) error {
	_, err := s.db.Exec(`
	INSERT INTO current_display (singleton, user_id, content_url, content_type, displayed_at, clear_at)
	VALUES (true, $1, $2, $3, $4, $5)
	ON CONFLICT (singleton)
	DO UPDATE SET user_id = $1, content_url = $2, content_type = $3, displayed_at = $4, clear_at = $5;`,
		c.UserID, c.ContentURL, c.ContentType, c.DisplayedAt.UTC(), c.ClearAt.UTC())
	if err != nil {
		log.Error().Err(err).Msg("SaveCurrentDisplay failed")
	}
	return err
}

func (s *pgStore) ClearCurrentDisplay() error {
	_, err := s.db.Exec(`DELETE FROM current_display WHERE singleton;`)
	if err != nil {
		log.Error().Err(err).Msg("ClearCurrentDisplay failed")
	}
	return err
}

// LoadCurrentDisplay returns nil when no snapshot row exists.
func (s *pgStore) LoadCurrentDisplay() (*model.CurrentDisplay, error) {
	var c model.CurrentDisplay
	err := s.db.Get(&c, `
	SELECT user_id, content_url, content_type, displayed_at, clear_at
	  FROM current_display
	 WHERE singleton;`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error().Err(err).Msg("LoadCurrentDisplay failed")
		return nil, err
	}
	return &c, nil
}

func (s *pgStore) RecordDaypartHistory(h model.DaypartHistory) error {
	_, err := s.db.Exec(`
	INSERT INTO daypart_history (device_id, "window", content_id, applied_at)
	VALUES ($1, $2, $3, $4);`,
		h.DeviceID, h.Window, h.ContentID, h.AppliedAt.UTC())
	if err != nil {
		log.Error().Err(err).Msg("RecordDaypartHistory failed")
	}
	return err
}
