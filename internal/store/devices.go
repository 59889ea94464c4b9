package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gridwatch/internal/models"
)

const deviceColumns = `id, serial_number, name, type, location, mac_address, firmware_version, protocol, status`

func scanDevice(row interface{ Scan(...any) error }) (models.Device, error) {
	var d models.Device
	err := row.Scan(&d.ID, &d.SerialNumber, &d.Name, &d.Type, &d.Location,
		&d.MACAddress, &d.FirmwareVersion, &d.Protocol, &d.Status)
	return d, err
}

func collectDevices(rows *sql.Rows) ([]models.Device, error) {
	defer rows.Close()
	devices := []models.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// ListDevices returns the full registry, newest first. This is the device
// snapshot the simulation engine consumes.
func (s *Store) ListDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return collectDevices(rows)
}

// DevicesForUser returns the devices assigned to a sub-user, newest first.
func (s *Store) DevicesForUser(ctx context.Context, userID int64) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices
		 JOIN device_assignments ON device_assignments.device_id = devices.id
		 WHERE device_assignments.user_id = ?
		 ORDER BY devices.created_at DESC, devices.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("devices for user: %w", err)
	}
	return collectDevices(rows)
}

// SampleDevices returns up to limit newest devices. Used as the demo
// fallback when a sub-user has no assignments.
func (s *Store) SampleDevices(ctx context.Context, limit int) ([]models.Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sample devices: %w", err)
	}
	return collectDevices(rows)
}

// DeviceBySerial fetches a single device or ErrNotFound.
func (s *Store) DeviceBySerial(ctx context.Context, serial string) (models.Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE serial_number = ?`, serial)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Device{}, ErrNotFound
	}
	if err != nil {
		return models.Device{}, fmt.Errorf("device by serial: %w", err)
	}
	return d, nil
}

// CreateDevice inserts a registry record. Returns ErrDuplicateSerial when
// the serial number is taken.
func (s *Store) CreateDevice(ctx context.Context, d models.Device) (models.Device, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO devices (serial_number, name, type, location, mac_address, firmware_version, protocol, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.SerialNumber, d.Name, d.Type, d.Location, d.MACAddress,
		d.FirmwareVersion, d.Protocol, d.Status, time.Now().Unix())
	if isUniqueViolation(err) {
		return models.Device{}, ErrDuplicateSerial
	}
	if err != nil {
		return models.Device{}, fmt.Errorf("create device: %w", err)
	}
	d.ID, _ = res.LastInsertId()
	return d, nil
}

// UpdateDevice rewrites the mutable fields of the device with the given
// serial. The serial number itself is immutable.
func (s *Store) UpdateDevice(ctx context.Context, serial string, d models.Device) (models.Device, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE devices SET name = ?, type = ?, location = ?, mac_address = ?,
		 firmware_version = ?, protocol = ?, status = ? WHERE serial_number = ?`,
		d.Name, d.Type, d.Location, d.MACAddress, d.FirmwareVersion,
		d.Protocol, d.Status, serial)
	if err != nil {
		return models.Device{}, fmt.Errorf("update device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Device{}, ErrNotFound
	}
	return s.DeviceBySerial(ctx, serial)
}

// DeleteDevice removes a device and, via cascade, its assignments.
func (s *Store) DeleteDevice(ctx context.Context, serial string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE serial_number = ?`, serial)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignDevice links a device to a sub-user. Re-assigning is a no-op.
func (s *Store) AssignDevice(ctx context.Context, serial string, userID int64) error {
	device, err := s.DeviceBySerial(ctx, serial)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO device_assignments (device_id, user_id) VALUES (?, ?)`,
		device.ID, userID)
	if err != nil {
		return fmt.Errorf("assign device: %w", err)
	}
	return nil
}

// UnassignDevice removes a device-to-user link.
func (s *Store) UnassignDevice(ctx context.Context, serial string, userID int64) error {
	device, err := s.DeviceBySerial(ctx, serial)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM device_assignments WHERE device_id = ? AND user_id = ?`,
		device.ID, userID)
	if err != nil {
		return fmt.Errorf("unassign device: %w", err)
	}
	return nil
}

// AssignedSerials returns the serial numbers assigned to a sub-user.
func (s *Store) AssignedSerials(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT devices.serial_number FROM devices
		 JOIN device_assignments ON device_assignments.device_id = devices.id
		 WHERE device_assignments.user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("assigned serials: %w", err)
	}
	defer rows.Close()
	serials := []string{}
	for rows.Next() {
		var serial string
		if err := rows.Scan(&serial); err != nil {
			return nil, err
		}
		serials = append(serials, serial)
	}
	return serials, rows.Err()
}

// placeholders builds a "?, ?, ?" list for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
