package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/Luminet-Displays/luminet/internal/model"
)

func (s *pgStore) userOwnsGroup(userID, groupID int) error {
	var exists int
	if err := s.db.Get(&exists, `SELECT 1 FROM device_groups WHERE id=$1 AND created_by=$2`, groupID, userID); err != nil {
		return err
	}
	return nil
}

func (s *pgStore) userOwnsDevice(userID, deviceID int) error {
	var exists int
	if err := s.db.Get(&exists, `SELECT 1 FROM devices WHERE id=$1 AND created_by=$2`, deviceID, userID); err != nil {
		return err
	}
	return nil
}

func (s *pgStore) CreateDeviceGroup(ownerID int, name string, description *string) (model.DeviceGroup, error) {
	var g model.DeviceGroup
	if name == "" {
		return g, fmt.Errorf("group name is required")
	}
	err := s.db.Get(&g, `
		INSERT INTO device_groups (name, description, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, name, description, created_by, created_at, updated_at
	`, name, description, ownerID)
	return g, err
}

func (s *pgStore) GetDeviceGroupByID(groupID int) (model.DeviceGroup, error) {
	var g model.DeviceGroup
	err := s.db.Get(&g, `
		SELECT id, name, description, created_by, created_at, updated_at
		  FROM device_groups
		 WHERE id = $1
	`, groupID)
	return g, err
}

func (s *pgStore) ListDeviceGroups(ownerID int) ([]model.DeviceGroup, error) {
	var groups []model.DeviceGroup
	err := s.db.Select(&groups, `
		SELECT id, name, description, created_by, created_at, updated_at
		  FROM device_groups
		 WHERE created_by = $1
		 ORDER BY name ASC, id ASC
	`, ownerID)
	return groups, err
}

func (s *pgStore) DeleteDeviceGroup(ownerID, groupID int) error {
	res, err := s.db.Exec(`DELETE FROM device_groups WHERE id=$1 AND created_by=$2`, groupID, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *pgStore) AddDeviceToGroup(ownerID, groupID, deviceID int) error {
	if err := s.userOwnsGroup(ownerID, groupID); err != nil {
		return err
	}
	if err := s.userOwnsDevice(ownerID, deviceID); err != nil {
		return err
	}

	// membership insert is idempotent
	_, err := s.db.Exec(`
		INSERT INTO device_group_members (group_id, device_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, groupID, deviceID)
	return err
}

func (s *pgStore) RemoveDeviceFromGroup(ownerID, groupID, deviceID int) error {
	if err := s.userOwnsGroup(ownerID, groupID); err != nil {
		return err
	}
	if err := s.userOwnsDevice(ownerID, deviceID); err != nil {
		return err
	}

	res, err := s.db.Exec(`
		DELETE FROM device_group_members
		 WHERE group_id=$1 AND device_id=$2
	`, groupID, deviceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *pgStore) DevicesInGroup(ownerID, groupID int) ([]model.Device, error) {
	if err := s.userOwnsGroup(ownerID, groupID); err != nil {
		return nil, err
	}

	var devices []model.Device
	err := s.db.Select(&devices, `
		SELECT d.id, d.serial, d.name, d.location, d.timezone, d.paired,
		       d.daypart_enabled, d.created_by, d.created_at, d.updated_at
		  FROM device_group_members m
		  JOIN devices d ON d.id = m.device_id
		 WHERE m.group_id = $1
		   AND d.created_by = $2
		 ORDER BY d.name ASC, d.id ASC
	`, groupID, ownerID)
	return devices, err
}
