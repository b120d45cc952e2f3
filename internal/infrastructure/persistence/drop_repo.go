package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/pkg/errcodes"
)

const dropColumns = `
	id, name, description, image_blob_id, total_supply, minted_count,
	chain_object_id, auction_slots, auction_deadline, auction_recipient,
	auction_closed_at, created_at, updated_at`

type DropRepository struct {
	db *sqlx.DB
}

func NewDropRepository(db *sqlx.DB) *DropRepository {
	return &DropRepository{db: db}
}

func (r *DropRepository) Create(ctx context.Context, drop *entity.Drop) error {
	now := time.Now().UTC()
	if drop.CreatedAt.IsZero() {
		drop.CreatedAt = now
	}

	drop.UpdatedAt = now

	query := `
		INSERT INTO drops (` + dropColumns + `)
		VALUES (
			:id, :name, :description, :image_blob_id, :total_supply, :minted_count,
			:chain_object_id, :auction_slots, :auction_deadline, :auction_recipient,
			:auction_closed_at, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, fromDrop(drop)); err != nil {
		return fmt.Errorf("db.NamedExecContext: %w", err)
	}

	return nil
}

// Update overwrites the editable fields. Counters and the chain object id are
// never touched here.
func (r *DropRepository) Update(ctx context.Context, drop *entity.Drop) error {
	drop.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE drops SET
			name = :name,
			description = :description,
			image_blob_id = :image_blob_id,
			auction_slots = :auction_slots,
			auction_deadline = :auction_deadline,
			auction_recipient = :auction_recipient,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, fromDrop(drop))
	if err != nil {
		return fmt.Errorf("db.NamedExecContext: %w", err)
	}

	return requireAffected(res, domain.NotFound(errcodes.DropNotFound, "drop not found"))
}

func (r *DropRepository) Get(ctx context.Context, id uuid.UUID) (entity.Drop, error) {
	return getDrop(ctx, r.db, id, "")
}

func (r *DropRepository) List(ctx context.Context, limit, offset int) ([]entity.Drop, error) {
	query := `SELECT ` + dropColumns + ` FROM drops ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`

	var schemas []dropSchema
	if err := r.db.SelectContext(ctx, &schemas, query, limit, offset); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}

	return dropsToDomain(schemas), nil
}

// ListOverdueAuctions returns drops whose auction deadline passed but which
// were not closed yet.
func (r *DropRepository) ListOverdueAuctions(ctx context.Context, now time.Time) ([]entity.Drop, error) {
	query := `
		SELECT ` + dropColumns + `
		FROM drops
		WHERE auction_slots IS NOT NULL
		  AND auction_closed_at IS NULL
		  AND auction_deadline <= $1
		ORDER BY auction_deadline`

	var schemas []dropSchema
	if err := r.db.SelectContext(ctx, &schemas, query, now); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}

	return dropsToDomain(schemas), nil
}

func (r *DropRepository) Stats(ctx context.Context, id uuid.UUID) (entity.DropStats, error) {
	query := `
		SELECT
			d.id AS drop_id,
			d.total_supply,
			(SELECT count(*) FROM shirts s WHERE s.drop_id = d.id AND s.minted) AS minted,
			(SELECT count(*) FROM shirts s WHERE s.drop_id = d.id AND s.claimed_by IS NOT NULL) AS claimed,
			(SELECT count(*) FROM claim_tokens t WHERE t.drop_id = d.id) AS tokens_issued,
			(SELECT count(*) FROM bids b WHERE b.drop_id = d.id) AS bids
		FROM drops d
		WHERE d.id = $1`

	var row struct {
		DropID       uuid.UUID `db:"drop_id"`
		TotalSupply  int       `db:"total_supply"`
		Minted       int       `db:"minted"`
		Claimed      int       `db:"claimed"`
		TokensIssued int       `db:"tokens_issued"`
		Bids         int       `db:"bids"`
	}

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.DropStats{}, domain.NotFound(errcodes.DropNotFound, "drop not found")
		}

		return entity.DropStats{}, fmt.Errorf("db.GetContext: %w", err)
	}

	return entity.DropStats(row), nil
}

// getDrop reads a drop through db or tx; lock is appended verbatim
// (e.g. "FOR UPDATE").
func getDrop(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID, lock string) (entity.Drop, error) {
	query := `SELECT ` + dropColumns + ` FROM drops WHERE id = $1 ` + lock

	var schema dropSchema
	if err := sqlx.GetContext(ctx, q, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Drop{}, domain.NotFound(errcodes.DropNotFound, "drop not found")
		}

		return entity.Drop{}, fmt.Errorf("sqlx.GetContext: %w", err)
	}

	return schema.toDomain(), nil
}

func dropsToDomain(schemas []dropSchema) []entity.Drop {
	drops := make([]entity.Drop, 0, len(schemas))
	for i := range schemas {
		drops = append(drops, schemas[i].toDomain())
	}

	return drops
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("res.RowsAffected: %w", err)
	}

	if n == 0 {
		return notFound
	}

	return nil
}
