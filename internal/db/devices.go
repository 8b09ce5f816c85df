package db

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Luminet-Displays/luminet/internal/model"
)

const deviceColumns = `id, serial, name, location, timezone, paired, daypart_enabled, created_by, created_at, updated_at`

func (s *pgStore) CreateDevice(name string, location *string, timezone string, createdBy int) (model.Device, error) {
	var d model.Device
	q := `
	INSERT INTO devices (name, location, timezone, paired, daypart_enabled, created_by, created_at, updated_at)
	VALUES ($1, $2, $3, false, false, $4, now(), now())
	RETURNING ` + deviceColumns + `;`
	if err := s.db.Get(&d, q, name, location, timezone, createdBy); err != nil {
		log.Error().Err(err).Msg("failed to create device")
		return model.Device{}, err
	}
	return d, nil
}

func (s *pgStore) GetDeviceByID(id int) (model.Device, error) {
	var d model.Device
	err := s.db.Get(&d, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)
	if err != nil && err != sql.ErrNoRows {
		log.Error().Err(err).Int("device_id", id).Msg("failed to get device by id")
	}
	return d, err
}

func (s *pgStore) GetDeviceBySerial(serial string) (model.Device, error) {
	var d model.Device
	err := s.db.Get(&d, `SELECT `+deviceColumns+` FROM devices WHERE serial = $1`, serial)
	if err != nil && err != sql.ErrNoRows {
		log.Error().Err(err).Str("serial", serial).Msg("failed to get device by serial")
	}
	return d, err
}

func (s *pgStore) ListDevices(ownerID int) ([]model.Device, error) {
	var devices []model.Device
	err := s.db.Select(&devices, `
		SELECT `+deviceColumns+`
		FROM devices
		WHERE created_by = $1
		ORDER BY id
		`, ownerID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list devices")
		return nil, err
	}
	return devices, nil
}

func (s *pgStore) UpdateDevice(id int, name, location, timezone *string) error {
	_, err := s.db.Exec(`
		UPDATE devices
		SET name = COALESCE($2, name),
		location = COALESCE($3, location),
		timezone = COALESCE($4, timezone),
		updated_at = now()
		WHERE id = $1
		`, id, name, location, timezone)
	if err != nil {
		log.Error().Err(err).Int("device_id", id).Msg("failed to update device")
	}
	return err
}

func (s *pgStore) AssignSerialToDevice(id int, serial string) error {
	_, err := s.db.Exec(`
		UPDATE devices
		SET serial = $2,
		updated_at = now()
		WHERE id = $1
		`, id, serial)
	if err != nil {
		log.Error().Err(err).Int("device_id", id).Msg("failed to assign serial to device")
	}
	return err
}

func (s *pgStore) PairDevice(id int) error {
	_, err := s.db.Exec(`
		UPDATE devices
		SET paired = TRUE,
		updated_at = now()
		WHERE id = $1
		`, id)
	if err != nil {
		log.Error().Err(err).Int("device_id", id).Msg("failed to pair device")
	}
	return err
}

func (s *pgStore) SetDaypartEnabled(id int, enabled bool) error {
	_, err := s.db.Exec(`
		UPDATE devices
		SET daypart_enabled = $2,
		updated_at = now()
		WHERE id = $1
		`, id, enabled)
	if err != nil {
		log.Error().Err(err).Int("device_id", id).Msg("failed to toggle daypart mode")
	}
	return err
}

func (s *pgStore) DeleteDevice(id, ownerID int) error {
	res, err := s.db.Exec(`DELETE FROM devices WHERE id = $1 AND created_by = $2`, id, ownerID)
	if err != nil {
		log.Error().Err(err).Int("device_id", id).Msg("failed to delete device")
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
