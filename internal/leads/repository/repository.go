// Package repository provides pgx-backed persistence for the leads bounded
// context. Multi-row lifecycle effects go through the Apply* methods, which
// run inside a single transaction.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                uuid.UUID
	Name              string
	Phone             string
	Email             *string
	Stage             string
	Temperature       string
	BudgetMin         *int64
	BudgetMax         *int64
	PreferredLocation *string
	Notes             *string
	LostReason        *string
	IsPriority        bool
	AssignedToID      uuid.UUID
	NextFollowupAt    *time.Time
	LastContactedAt   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const leadColumns = `id, name, phone, email, stage, temperature, budget_min, budget_max,
		preferred_location, notes, lost_reason, is_priority, assigned_to_id,
		next_followup_at, last_contacted_at, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Phone, &l.Email, &l.Stage, &l.Temperature,
		&l.BudgetMin, &l.BudgetMax, &l.PreferredLocation, &l.Notes, &l.LostReason,
		&l.IsPriority, &l.AssignedToID, &l.NextFollowupAt, &l.LastContactedAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

type CreateLeadParams struct {
	Name              string
	Phone             string
	Email             *string
	Stage             string
	Temperature       string
	BudgetMin         *int64
	BudgetMax         *int64
	PreferredLocation *string
	Notes             *string
	AssignedToID      uuid.UUID
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			name, phone, email, stage, temperature, budget_min, budget_max,
			preferred_location, notes, assigned_to_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+leadColumns,
		params.Name, params.Phone, params.Email, params.Stage, params.Temperature,
		params.BudgetMin, params.BudgetMax, params.PreferredLocation, params.Notes,
		params.AssignedToID,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// ListLeadsFilter narrows ListLeads. Zero values mean "no filter".
type ListLeadsFilter struct {
	Stage        string
	Temperature  string
	AssignedToID *uuid.UUID
	Limit        int
	Offset       int
}

func (r *Repository) ListLeads(ctx context.Context, filter ListLeadsFilter) ([]Lead, error) {
	var (
		where []string
		args  []any
	)

	if filter.Stage != "" {
		args = append(args, filter.Stage)
		where = append(where, fmt.Sprintf("stage = $%d", len(args)))
	}
	if filter.Temperature != "" {
		args = append(args, filter.Temperature)
		where = append(where, fmt.Sprintf("temperature = $%d", len(args)))
	}
	if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		where = append(where, fmt.Sprintf("assigned_to_id = $%d", len(args)))
	}

	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// StageMetric is one row of the grouped pipeline counts used by dashboards.
type StageMetric struct {
	Stage       string
	Temperature string
	Count       int64
}

func (r *Repository) StageMetrics(ctx context.Context) ([]StageMetric, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT stage, temperature, COUNT(*)
		FROM leads
		GROUP BY stage, temperature
		ORDER BY stage, temperature
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := make([]StageMetric, 0)
	for rows.Next() {
		var m StageMetric
		if err := rows.Scan(&m.Stage, &m.Temperature, &m.Count); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
