package db

import (
	"context"
	"time"

	"dispatch/models"
)

// CreateBid inserts a pending bid. A bidder resubmitting against the same
// call supersedes their earlier pending bid in the same transaction, so at
// most one pending bid per bidder per call exists.
func (s *Storage) CreateBid(ctx context.Context, b *models.Bid) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        UPDATE bids SET status = 'superseded'
        WHERE call_id = $1 AND member_id = $2 AND status = 'pending'`,
		b.CallID, b.MemberID)
	if err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx, `
        INSERT INTO bids (id, call_id, member_id, member_name, eta_minutes, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at`,
		b.ID, b.CallID, b.MemberID, b.MemberName, b.ETAMinutes, b.Status).
		Scan(&b.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Storage) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	b := &models.Bid{}
	query := `SELECT * FROM bids WHERE id=$1`
	if err := s.db.GetContext(ctx, b, query, id); err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// ListPendingBids returns pending bids in submission order, oldest first.
// The order is for display only; acceptance stays a manual admin action.
func (s *Storage) ListPendingBids(ctx context.Context, callID string) ([]models.Bid, error) {
	bids := []models.Bid{}
	query := `
        SELECT * FROM bids
        WHERE call_id = $1 AND status = 'pending'
        ORDER BY created_at ASC, id ASC`
	err := s.db.SelectContext(ctx, &bids, query, callID)
	return bids, err
}

// AcceptBid resolves a call through a bid in one transaction. The decisive
// statement joins the pending bid to its still-open call, so the claim and
// the precondition check are a single compare-and-set; nothing is written
// when either side already moved on.
func (s *Storage) AcceptBid(ctx context.Context, bidID string, now time.Time) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE calls
        SET status = 'claimed', assigned_to = b.member_id, resolved_at = $2
        FROM bids b
        WHERE b.id = $1 AND b.status = 'pending'
          AND calls.id = b.call_id
          AND calls.status = 'open' AND calls.expires_at > $2`,
		bidID, now)
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
        UPDATE bids SET status = 'accepted' WHERE id = $1`, bidID)
	if err != nil {
		return false, err
	}
	_, err = tx.ExecContext(ctx, `
        UPDATE bids SET status = 'superseded'
        WHERE call_id = (SELECT call_id FROM bids WHERE id = $1)
          AND id <> $1 AND status = 'pending'`, bidID)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// RejectBid moves a pending bid to rejected. The call and sibling bids are
// untouched.
func (s *Storage) RejectBid(ctx context.Context, bidID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE bids SET status = 'rejected'
        WHERE id = $1 AND status = 'pending'`, bidID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
