package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore reads role overrides from the role_policies table:
//
//	CREATE TABLE role_policies (
//	    role            text PRIMARY KEY,
//	    min_length      int,
//	    require_upper   boolean,
//	    require_lower   boolean,
//	    require_digit   boolean,
//	    require_special boolean,
//	    reject_username boolean,
//	    log_only        boolean
//	);
//
// NULL columns inherit from the default policy, matching the Overrides
// pointer-field semantics one to one.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: postgres ping: %w", err)
	}
	return &pgStore{pool: pool}, nil
}

const qRolePolicy = `
SELECT min_length, require_upper, require_lower, require_digit,
       require_special, reject_username, log_only
FROM role_policies
WHERE role = $1`

func (p *pgStore) RoleOverrides(ctx context.Context, role string) (Overrides, bool, error) {
	var o Overrides
	err := p.pool.QueryRow(ctx, qRolePolicy, role).Scan(
		&o.MinLength, &o.RequireUpper, &o.RequireLower, &o.RequireDigit,
		&o.RequireSpecial, &o.RejectUsername, &o.LogOnly,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Overrides{}, false, nil
	}
	if err != nil {
		return Overrides{}, false, fmt.Errorf("store: role_policies lookup: %w", err)
	}
	return o, true, nil
}

func (p *pgStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *pgStore) Close() error {
	p.pool.Close()
	return nil
}
