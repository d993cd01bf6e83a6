package postgres

import (
	"context"

	"github.com/kevin07696/clientledger/internal/domain/ports"
)

const clientExistsSQL = `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1 AND deleted_at IS NULL)`

// ClientDirectory implements ports.ClientDirectory over the clients table
type ClientDirectory struct {
	db ports.DBPort
}

var _ ports.ClientDirectory = (*ClientDirectory)(nil)

// NewClientDirectory creates a new client directory
func NewClientDirectory(db ports.DBPort) *ClientDirectory {
	return &ClientDirectory{db: db}
}

// ClientExists reports whether the client exists and has not been deleted
func (d *ClientDirectory) ClientExists(ctx context.Context, clientID string) (bool, error) {
	var exists bool
	if err := d.db.GetDB().QueryRow(ctx, clientExistsSQL, clientID).Scan(&exists); err != nil {
		return false, dbError("failed to check client", err)
	}
	return exists, nil
}
