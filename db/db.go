package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"dispatch/models"
)

// Storage wraps the Postgres connection. Every status transition that must
// be exactly-once is written as a conditional UPDATE whose WHERE clause
// guards the current status, so concurrent writers serialize on the row and
// RowsAffected tells the winner from the loser.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// notFound converts sql.ErrNoRows into the engine taxonomy.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

func (s *Storage) GetCompany(ctx context.Context, code string) (*models.Company, error) {
	c := &models.Company{}
	query := `SELECT * FROM companies WHERE code=$1`
	if err := s.db.GetContext(ctx, c, query, code); err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *Storage) CreateCompany(ctx context.Context, c *models.Company) error {
	query := `
        INSERT INTO companies (code, name, require_bid_approval)
        VALUES ($1, $2, $3)
        RETURNING created_at`
	return s.db.QueryRowContext(ctx, query, c.Code, c.Name, c.RequireBidApproval).
		Scan(&c.CreatedAt)
}

func (s *Storage) GetMember(ctx context.Context, id string) (*models.Member, error) {
	m := &models.Member{}
	query := `SELECT * FROM members WHERE id=$1`
	if err := s.db.GetContext(ctx, m, query, id); err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (s *Storage) CreateMember(ctx context.Context, m *models.Member) error {
	query := `
        INSERT INTO members (id, company_code, username, display_name, role)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at`
	return s.db.QueryRowContext(ctx, query,
		m.ID, m.CompanyCode, m.Username, m.DisplayName, m.Role).
		Scan(&m.CreatedAt)
}

// OnCallStatus

func (s *Storage) GetOnCall(ctx context.Context, companyCode string) (*models.OnCallStatus, error) {
	o := &models.OnCallStatus{}
	query := `SELECT * FROM oncall_status WHERE company_code=$1`
	err := s.db.GetContext(ctx, o, query, companyCode)
	if errors.Is(err, sql.ErrNoRows) {
		// No row means nobody has ever been put on call for the tenant.
		return &models.OnCallStatus{CompanyCode: companyCode}, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Storage) SetOnCall(ctx context.Context, o *models.OnCallStatus) error {
	query := `
        INSERT INTO oncall_status (company_code, is_on_call, member_id, member_name, started_at)
        VALUES ($1, TRUE, $2, $3, $4)
        ON CONFLICT (company_code) DO UPDATE
        SET is_on_call = TRUE, member_id = EXCLUDED.member_id,
            member_name = EXCLUDED.member_name, started_at = EXCLUDED.started_at`
	_, err := s.db.ExecContext(ctx, query,
		o.CompanyCode, o.MemberID, o.MemberName, o.StartedAt)
	return err
}

func (s *Storage) ClearOnCall(ctx context.Context, companyCode string) error {
	query := `
        UPDATE oncall_status
        SET is_on_call = FALSE, member_id = '', member_name = '', started_at = NULL
        WHERE company_code = $1`
	_, err := s.db.ExecContext(ctx, query, companyCode)
	return err
}

// Call events (audit log)

func (s *Storage) AppendCallEvent(ctx context.Context, e *models.CallEvent) error {
	query := `
        INSERT INTO call_events (call_id, event_type, actor_id, detail)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, e.CallID, e.Type, e.ActorID, e.Detail).
		Scan(&e.ID, &e.CreatedAt)
}

func (s *Storage) ListCallEvents(ctx context.Context, callID string) ([]models.CallEvent, error) {
	events := []models.CallEvent{}
	query := `SELECT * FROM call_events WHERE call_id=$1 ORDER BY created_at ASC, id ASC`
	err := s.db.SelectContext(ctx, &events, query, callID)
	return events, err
}

// TenantStats counts calls per status for a company. Open calls whose
// deadline already passed are counted as expired even before the sweeper
// has transitioned them.
func (s *Storage) TenantStats(ctx context.Context, companyCode string, now time.Time) (*models.TenantStats, error) {
	st := &models.TenantStats{CompanyCode: companyCode}
	query := `
        SELECT
            COUNT(*) FILTER (WHERE status = 'open' AND expires_at > $2)  AS open_calls,
            COUNT(*) FILTER (WHERE status = 'claimed')                   AS claimed_calls,
            COUNT(*) FILTER (WHERE status = 'expired'
                             OR (status = 'open' AND expires_at <= $2))  AS expired_calls,
            COUNT(*) FILTER (WHERE status = 'cancelled')                 AS cancelled_calls,
            COALESCE(SUM(bonus) FILTER (WHERE status = 'claimed'), 0)    AS bonus_paid
        FROM calls
        WHERE company_code = $1`
	if err := s.db.GetContext(ctx, st, query, companyCode, now); err != nil {
		return nil, err
	}
	return st, nil
}
