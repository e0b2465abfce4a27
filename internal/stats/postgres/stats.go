package postgres

import (
	"context"
	"time"

	"github.com/frahmantamala/tracker-workorders/internal"
	"github.com/frahmantamala/tracker-workorders/internal/workorder"
	"github.com/jmoiron/sqlx"
)

// Counter runs the dashboard COUNT queries on the shared sqlx pool.
type Counter struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewCounter bounds every call by queryTimeout; zero falls back to the package default.
func NewCounter(db *sqlx.DB, queryTimeout time.Duration) *Counter {
	return &Counter{db: db, timeout: queryTimeout}
}

func (c *Counter) CountForTechnician(ctx context.Context, technicianID string, status workorder.Status) (int, error) {
	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	var n int
	query := c.db.Rebind(`SELECT COUNT(*) FROM work_orders WHERE technician_id = ? AND status = ?`)
	if err := c.db.GetContext(ctx, &n, query, technicianID, string(status)); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Counter) CountByStatus(ctx context.Context, status workorder.Status) (int, error) {
	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	var n int
	query := c.db.Rebind(`SELECT COUNT(*) FROM work_orders WHERE status = ?`)
	if err := c.db.GetContext(ctx, &n, query, string(status)); err != nil {
		return 0, err
	}
	return n, nil
}
