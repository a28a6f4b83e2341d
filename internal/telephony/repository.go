package telephony

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAmbiguous is returned when a phone match key resolves to more than one
// row. Ambiguous events are discarded rather than guessed at.
var ErrAmbiguous = errors.New("phone match is ambiguous")

var ErrNoMatch = errors.New("no phone match")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindLeadByPhoneKey resolves a lead by the last 10 digits of its phone
// number. Stored numbers carry formatting and country prefixes, so matching
// strips both sides down to the digit suffix.
func (r *Repository) FindLeadByPhoneKey(ctx context.Context, matchKey string) (uuid.UUID, error) {
	return r.findByPhoneKey(ctx, "leads", matchKey)
}

// FindAgentByPhoneKey resolves an agent the same way.
func (r *Repository) FindAgentByPhoneKey(ctx context.Context, matchKey string) (uuid.UUID, error) {
	return r.findByPhoneKey(ctx, "agents", matchKey)
}

func (r *Repository) findByPhoneKey(ctx context.Context, table, matchKey string) (uuid.UUID, error) {
	if matchKey == "" {
		return uuid.Nil, ErrNoMatch
	}

	// LIMIT 2 is enough to detect ambiguity without scanning every duplicate.
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT id FROM %s
		WHERE right(regexp_replace(phone, '[^0-9]', '', 'g'), 10) = $1
		LIMIT 2`, table), matchKey)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to query %s by phone: %w", table, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return uuid.Nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return uuid.Nil, err
	}

	switch len(ids) {
	case 0:
		return uuid.Nil, ErrNoMatch
	case 1:
		return ids[0], nil
	default:
		return uuid.Nil, ErrAmbiguous
	}
}

// GetAgentPhone returns the stored phone number for a dial dispatch.
func (r *Repository) GetAgentPhone(ctx context.Context, agentID uuid.UUID) (string, error) {
	var agentPhone string
	err := r.pool.QueryRow(ctx, `SELECT phone FROM agents WHERE id = $1`, agentID).Scan(&agentPhone)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoMatch
	}
	if err != nil {
		return "", fmt.Errorf("failed to load agent phone: %w", err)
	}
	return agentPhone, nil
}
