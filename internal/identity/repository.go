package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested party does not exist.
var ErrNotFound = errors.New("party not found")

// Repository persists parties.
type Repository interface {
	Create(ctx context.Context, party Party) error
	FindByPhone(ctx context.Context, phone string) (Party, error)
	FindByID(ctx context.Context, id string) (Party, error)
	UpdateTokenVersion(ctx context.Context, id string, version int) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed party repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new party.
func (r *PostgresRepository) Create(ctx context.Context, party Party) error {
	partyID, err := uuid.Parse(party.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO parties (id, phone, pin_hash, token_version, created_at)
        VALUES ($1, $2, $3, $4, $5)`, partyID, party.Phone, party.PINHash, party.TokenVersion, party.CreatedAt.UTC())
	return err
}

// FindByPhone fetches a party by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (Party, error) {
	row := r.db.QueryRow(ctx, `SELECT id, phone, pin_hash, token_version, created_at
        FROM parties WHERE phone = $1`, phone)
	return scanParty(row)
}

// FindByID fetches a party by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Party, error) {
	partyID, err := uuid.Parse(id)
	if err != nil {
		return Party{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, phone, pin_hash, token_version, created_at
        FROM parties WHERE id = $1`, partyID)
	return scanParty(row)
}

// UpdateTokenVersion bumps the party's token version, invalidating older tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	partyID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE parties SET token_version = $1 WHERE id = $2`, version, partyID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParty(row rowScanner) (Party, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		party     Party
	)
	if err := row.Scan(&id, &party.Phone, &party.PINHash, &party.TokenVersion, &createdAt); err != nil {
		return Party{}, err
	}
	party.ID = id.String()
	party.CreatedAt = createdAt.UTC()
	return party, nil
}
