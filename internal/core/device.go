package core

import (
	"context"
	"fmt"
	"time"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/model"
)

// DeviceService manages the device inventory.
type DeviceService struct {
	db DB
}

// NewDeviceService creates a new DeviceService.
func NewDeviceService(db DB) *DeviceService {
	return &DeviceService{db: db}
}

// Create inserts a new device into inventory.
func (s *DeviceService) Create(ctx context.Context, d *model.Device) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO devices (id, serial_number, model, manufacturer, customer_id, status, purchased_at, warranty_expires_at, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.SerialNumber, d.Model, d.Manufacturer, d.CustomerID, d.Status,
		d.PurchasedAt, d.WarrantyExpiresAt, d.Notes, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// GetByID retrieves a device by its ID.
func (s *DeviceService) GetByID(ctx context.Context, id string) (*model.Device, error) {
	var d model.Device
	err := s.db.QueryRow(ctx,
		`SELECT id, serial_number, model, manufacturer, customer_id, status, purchased_at, warranty_expires_at, notes, created_at, updated_at
		 FROM devices WHERE id = $1`, id,
	).Scan(&d.ID, &d.SerialNumber, &d.Model, &d.Manufacturer, &d.CustomerID, &d.Status,
		&d.PurchasedAt, &d.WarrantyExpiresAt, &d.Notes, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get device %s: %w", id, err)
	}
	return &d, nil
}

// List retrieves devices with cursor-based pagination. Search matches serial
// number, model and manufacturer.
func (s *DeviceService) List(ctx context.Context, params request.ListParams) ([]model.Device, bool, error) {
	query := `SELECT id, serial_number, model, manufacturer, customer_id, status, purchased_at, warranty_expires_at, notes, created_at, updated_at FROM devices WHERE 1=1`
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND (serial_number ILIKE $%d OR model ILIKE $%d OR manufacturer ILIKE $%d)`, argIdx, argIdx, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.ID, &d.SerialNumber, &d.Model, &d.Manufacturer, &d.CustomerID, &d.Status,
			&d.PurchasedAt, &d.WarrantyExpiresAt, &d.Notes, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate devices: %w", err)
	}

	hasMore := len(devices) > params.Limit
	if hasMore {
		devices = devices[:params.Limit]
	}
	return devices, hasMore, nil
}

// Update modifies the mutable fields of a device. Status moves between
// in_stock, in_repair, retired and lost here; assigned is only entered and
// left through assignments.
func (s *DeviceService) Update(ctx context.Context, id, deviceModel, manufacturer, status string, purchasedAt, warrantyExpiresAt *time.Time, notes *string) (*model.Device, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE devices SET model = $1, manufacturer = $2, status = $3, purchased_at = $4, warranty_expires_at = $5, notes = $6, updated_at = now()
		 WHERE id = $7`,
		deviceModel, manufacturer, status, purchasedAt, warrantyExpiresAt, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update device %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("device %s not found", id)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a device from inventory. The handler guards against
// deleting devices with an active assignment.
func (s *DeviceService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM devices WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete device %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("device %s not found", id)
	}
	return nil
}

// HasActiveAssignment reports whether the device is currently handed out.
func (s *DeviceService) HasActiveAssignment(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM assignments WHERE device_id = $1 AND status = $2`,
		id, model.AssignmentActive,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count active assignments for device %s: %w", id, err)
	}
	return count > 0, nil
}
