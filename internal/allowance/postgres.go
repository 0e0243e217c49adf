package allowance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists allowance entries in PostgreSQL. Mutations on a pair
// serialize through a row lock so each operation is all-or-nothing.
//
// Expected schema:
//
//	CREATE TABLE allowances (
//	    owner_id   UUID        NOT NULL,
//	    spender_id UUID        NOT NULL,
//	    amount     NUMERIC(78) NOT NULL,
//	    expires_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (owner_id, spender_id)
//	);
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed allowance ledger.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

const upsertQuery = `INSERT INTO allowances (owner_id, spender_id, amount, expires_at, updated_at)
        VALUES ($1, $2, $3::numeric, $4, $5)
        ON CONFLICT (owner_id, spender_id) DO UPDATE
        SET amount = EXCLUDED.amount, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`

// Approve replaces the entry for (owner, spender) in a single upsert.
func (l *PostgresLedger) Approve(ctx context.Context, owner, spender string, amount *uint256.Int, period time.Duration) (Entry, error) {
	if err := checkParties(owner, spender); err != nil {
		return Entry{}, err
	}

	entry := replaceEntry(owner, spender, amount, period, time.Now().UTC())
	_, err := l.db.Exec(ctx, upsertQuery,
		uuid.MustParse(owner), uuid.MustParse(spender), entry.Amount.Dec(), entry.ExpiresAt, entry.UpdatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("approve allowance: %w", err)
	}
	return entry, nil
}

// Spend debits the entry inside a transaction holding the pair's row lock.
func (l *PostgresLedger) Spend(ctx context.Context, owner, spender string, amount *uint256.Int) (Entry, error) {
	if err := checkParties(owner, spender); err != nil {
		return Entry{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cur, err := entryForUpdate(ctx, tx, owner, spender)
	if err != nil {
		return Entry{}, err
	}

	entry, changed, err := debit(cur, amount, time.Now().UTC())
	if err != nil {
		return Entry{}, err
	}
	if changed {
		if _, err := tx.Exec(ctx, upsertQuery,
			uuid.MustParse(owner), uuid.MustParse(spender), entry.Amount.Dec(), entry.ExpiresAt, entry.UpdatedAt); err != nil {
			return Entry{}, fmt.Errorf("spend allowance: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Increase adds delta to the stored amount and re-arms the expiry.
func (l *PostgresLedger) Increase(ctx context.Context, owner, spender string, delta *uint256.Int, period time.Duration) (Entry, error) {
	return l.adjust(ctx, owner, spender, delta, false, period)
}

// Decrease subtracts delta from the stored amount and re-arms the expiry.
func (l *PostgresLedger) Decrease(ctx context.Context, owner, spender string, delta *uint256.Int, period time.Duration) (Entry, error) {
	return l.adjust(ctx, owner, spender, delta, true, period)
}

func (l *PostgresLedger) adjust(ctx context.Context, owner, spender string, delta *uint256.Int, negative bool, period time.Duration) (Entry, error) {
	if err := checkParties(owner, spender); err != nil {
		return Entry{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cur, err := entryForUpdate(ctx, tx, owner, spender)
	if err != nil {
		return Entry{}, err
	}

	entry, err := adjust(cur, delta, negative, period, time.Now().UTC())
	if err != nil {
		return Entry{}, err
	}
	if _, err := tx.Exec(ctx, upsertQuery,
		uuid.MustParse(owner), uuid.MustParse(spender), entry.Amount.Dec(), entry.ExpiresAt, entry.UpdatedAt); err != nil {
		return Entry{}, fmt.Errorf("adjust allowance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Amount returns the stored amount; absent pairs read as zero.
func (l *PostgresLedger) Amount(ctx context.Context, owner, spender string) (*uint256.Int, error) {
	entry, err := l.lookup(ctx, owner, spender)
	if err != nil {
		return nil, err
	}
	return entry.Amount, nil
}

// Expiry returns the stored expiry; absent pairs read as the zero time.
func (l *PostgresLedger) Expiry(ctx context.Context, owner, spender string) (time.Time, error) {
	entry, err := l.lookup(ctx, owner, spender)
	if err != nil {
		return time.Time{}, err
	}
	return entry.ExpiresAt, nil
}

func (l *PostgresLedger) lookup(ctx context.Context, owner, spender string) (Entry, error) {
	ownerID, err := uuid.Parse(owner)
	if err != nil {
		return Entry{Owner: owner, Spender: spender, Amount: new(uint256.Int)}, nil
	}
	spenderID, err := uuid.Parse(spender)
	if err != nil {
		return Entry{Owner: owner, Spender: spender, Amount: new(uint256.Int)}, nil
	}

	row := l.db.QueryRow(ctx, `SELECT amount::text, expires_at, updated_at
        FROM allowances WHERE owner_id = $1 AND spender_id = $2`, ownerID, spenderID)
	entry, err := scanEntry(row, owner, spender)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{Owner: owner, Spender: spender, Amount: new(uint256.Int)}, nil
	}
	return entry, err
}

// GrantedBy lists the entries granted by the owner.
func (l *PostgresLedger) GrantedBy(ctx context.Context, owner string) ([]Entry, error) {
	return l.listBy(ctx, `SELECT owner_id, spender_id, amount::text, expires_at, updated_at
        FROM allowances WHERE owner_id = $1 ORDER BY spender_id`, owner)
}

// GrantedTo lists the entries granted to the spender.
func (l *PostgresLedger) GrantedTo(ctx context.Context, spender string) ([]Entry, error) {
	return l.listBy(ctx, `SELECT owner_id, spender_id, amount::text, expires_at, updated_at
        FROM allowances WHERE spender_id = $1 ORDER BY owner_id`, spender)
}

func (l *PostgresLedger) listBy(ctx context.Context, query, party string) ([]Entry, error) {
	partyID, err := uuid.Parse(party)
	if err != nil {
		return nil, nil
	}

	rows, err := l.db.Query(ctx, query, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			ownerID   uuid.UUID
			spenderID uuid.UUID
			amountDec string
			e         Entry
		)
		if err := rows.Scan(&ownerID, &spenderID, &amountDec, &e.ExpiresAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Owner = ownerID.String()
		e.Spender = spenderID.String()
		if e.Amount, err = uint256.FromDecimal(amountDec); err != nil {
			return nil, fmt.Errorf("decode stored amount: %w", err)
		}
		e.ExpiresAt = e.ExpiresAt.UTC()
		e.UpdatedAt = e.UpdatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// entryForUpdate fetches the pair's entry under a row lock; absent pairs
// produce an inert zero entry so the transition logic sees a uniform shape.
func entryForUpdate(ctx context.Context, tx pgx.Tx, owner, spender string) (Entry, error) {
	row := tx.QueryRow(ctx, `SELECT amount::text, expires_at, updated_at
        FROM allowances WHERE owner_id = $1 AND spender_id = $2 FOR UPDATE`,
		uuid.MustParse(owner), uuid.MustParse(spender))
	entry, err := scanEntry(row, owner, spender)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{Owner: owner, Spender: spender, Amount: new(uint256.Int)}, nil
	}
	return entry, err
}

func scanEntry(row pgx.Row, owner, spender string) (Entry, error) {
	var (
		amountDec string
		e         = Entry{Owner: owner, Spender: spender}
	)
	if err := row.Scan(&amountDec, &e.ExpiresAt, &e.UpdatedAt); err != nil {
		return Entry{}, err
	}
	var err error
	if e.Amount, err = uint256.FromDecimal(amountDec); err != nil {
		return Entry{}, fmt.Errorf("decode stored amount: %w", err)
	}
	e.ExpiresAt = e.ExpiresAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}
