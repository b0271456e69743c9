package db

import (
	"context"
	"time"

	"github.com/lib/pq"

	"dispatch/models"
)

func (s *Storage) CreateCall(ctx context.Context, c *models.Call) error {
	query := `
        INSERT INTO calls
            (id, company_code, category, customer_name, customer_phone,
             location, description, estimated_value, bonus, status, expires_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING created_at`
	return s.db.QueryRowContext(ctx, query,
		c.ID, c.CompanyCode, c.Category, c.CustomerName, c.CustomerPhone,
		c.Location, c.Description, c.EstimatedValue, c.Bonus, c.Status, c.ExpiresAt).
		Scan(&c.CreatedAt)
}

func (s *Storage) GetCall(ctx context.Context, id string) (*models.Call, error) {
	c := &models.Call{}
	query := `SELECT * FROM calls WHERE id=$1`
	if err := s.db.GetContext(ctx, c, query, id); err != nil {
		return nil, notFound(err)
	}
	shares := []string{}
	query = `SELECT marketplace_id FROM call_shares WHERE call_id=$1 ORDER BY created_at ASC`
	if err := s.db.SelectContext(ctx, &shares, query, id); err != nil {
		return nil, err
	}
	c.SharedTo = shares
	return c, nil
}

// ListOpenCallsForTenant returns open, unexpired calls the tenant owns plus
// calls shared into any marketplace it belongs to, de-duplicated by id.
func (s *Storage) ListOpenCallsForTenant(ctx context.Context, companyCode string, now time.Time, limit, offset int) ([]models.Call, error) {
	query := `
        SELECT DISTINCT c.*
        FROM calls c
        LEFT JOIN call_shares cs ON cs.call_id = c.id
        LEFT JOIN marketplace_members mm
            ON mm.marketplace_id = cs.marketplace_id AND mm.company_code = $1
        WHERE c.status = 'open'
          AND c.expires_at > $2
          AND (c.company_code = $1 OR mm.company_code IS NOT NULL)
        ORDER BY c.created_at DESC
        LIMIT $3 OFFSET $4`
	calls := []models.Call{}
	err := s.db.SelectContext(ctx, &calls, query, companyCode, now, limit, offset)
	return calls, err
}

// ClaimCall atomically transitions an open, unexpired call to claimed and
// supersedes any pending bids. Returns false when another actor already
// resolved the call (or the deadline passed); the caller decides which
// error that maps to.
func (s *Storage) ClaimCall(ctx context.Context, callID, memberID string, now time.Time) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE calls
        SET status = 'claimed', assigned_to = $2, resolved_at = $3
        WHERE id = $1 AND status = 'open' AND expires_at > $3`,
		callID, memberID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE bids SET status = 'superseded'
        WHERE call_id = $1 AND status = 'pending'`, callID)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// CancelCall transitions an open call to cancelled. Pending bids are
// superseded the same way claiming does it.
func (s *Storage) CancelCall(ctx context.Context, callID string, now time.Time) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE calls
        SET status = 'cancelled', resolved_at = $2
        WHERE id = $1 AND status = 'open'`,
		callID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE bids SET status = 'superseded'
        WHERE call_id = $1 AND status = 'pending'`, callID)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// SweepExpiredCalls moves every open call past its deadline to expired and
// supersedes their pending bids. Returns the ids it transitioned.
func (s *Storage) SweepExpiredCalls(ctx context.Context, now time.Time) ([]string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	expired := []string{}
	err = tx.SelectContext(ctx, &expired, `
        UPDATE calls
        SET status = 'expired', resolved_at = $1
        WHERE status = 'open' AND expires_at <= $1
        RETURNING id`, now)
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE bids SET status = 'superseded'
        WHERE call_id = ANY($1) AND status = 'pending'`, pq.Array(expired))
	if err != nil {
		return nil, err
	}
	return expired, tx.Commit()
}
