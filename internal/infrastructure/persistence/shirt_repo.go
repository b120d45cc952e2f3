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
	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/errcodes"
)

const shirtColumns = `
	id, drop_id, serial, object_id, minted, mint_digest, image_blob_id,
	metadata_blob_id, attributes, claimed_by, claim_digest, claimed_at,
	created_at, updated_at`

type ShirtRepository struct {
	db *sqlx.DB
}

func NewShirtRepository(db *sqlx.DB) *ShirtRepository {
	return &ShirtRepository{db: db}
}

// CreateMinted stores freshly minted shirts of one drop and refreshes the
// drop's minted_count mirror. Serials continue from the highest stored one.
// Shirts whose object id is already known are skipped; the returned slice
// holds only the inserted ones.
func (r *ShirtRepository) CreateMinted(ctx context.Context, dropID uuid.UUID, shirts []entity.Shirt) ([]entity.Shirt, error) {
	if len(shirts) == 0 {
		return nil, nil
	}

	inserted := make([]entity.Shirt, 0, len(shirts))

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := getDrop(ctx, tx, dropID, "FOR UPDATE"); err != nil {
			return err
		}

		var serial int
		if err := tx.GetContext(ctx, &serial,
			`SELECT COALESCE(MAX(serial), 0) FROM shirts WHERE drop_id = $1`, dropID); err != nil {
			return fmt.Errorf("tx.GetContext: %w", err)
		}

		now := time.Now().UTC()

		query := `
			INSERT INTO shirts (` + shirtColumns + `)
			VALUES (
				:id, :drop_id, :serial, :object_id, :minted, :mint_digest, :image_blob_id,
				:metadata_blob_id, :attributes, :claimed_by, :claim_digest, :claimed_at,
				:created_at, :updated_at
			)
			ON CONFLICT (object_id) DO NOTHING`

		for _, shirt := range shirts {
			if shirt.ID == uuid.Nil {
				shirt.ID = uuid.New()
			}

			shirt.DropID = dropID
			shirt.Serial = serial + 1
			shirt.Minted = true
			shirt.CreatedAt = now
			shirt.UpdatedAt = now

			schema, err := fromShirt(&shirt)
			if err != nil {
				return err
			}

			res, err := tx.NamedExecContext(ctx, query, schema)
			if err != nil {
				return fmt.Errorf("shirt %s: tx.NamedExecContext: %w", shirt.ObjectID, err)
			}

			if n, _ := res.RowsAffected(); n == 0 {
				continue
			}

			serial++

			inserted = append(inserted, shirt)
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE drops
			SET minted_count = (SELECT count(*) FROM shirts WHERE drop_id = $1 AND minted),
			    updated_at = $2
			WHERE id = $1`, dropID, now)
		if err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return inserted, nil
}

func (r *ShirtRepository) Get(ctx context.Context, id uuid.UUID) (entity.Shirt, error) {
	return r.getBy(ctx, "id", id)
}

func (r *ShirtRepository) GetByObjectID(ctx context.Context, id value.ObjectID) (entity.Shirt, error) {
	return r.getBy(ctx, "object_id", id.String())
}

func (r *ShirtRepository) List(ctx context.Context, dropID uuid.UUID, limit, offset int) ([]entity.Shirt, error) {
	query := `SELECT ` + shirtColumns + ` FROM shirts WHERE drop_id = $1 ORDER BY serial LIMIT $2 OFFSET $3`

	return r.selectShirts(ctx, query, dropID, limit, offset)
}

// ListClaimed returns claimed shirts of a drop, newest claim first.
func (r *ShirtRepository) ListClaimed(ctx context.Context, dropID uuid.UUID) ([]entity.Shirt, error) {
	query := `
		SELECT ` + shirtColumns + `
		FROM shirts
		WHERE drop_id = $1 AND claimed_by IS NOT NULL
		ORDER BY claimed_at DESC`

	return r.selectShirts(ctx, query, dropID)
}

// ListWithoutToken returns minted shirts of a drop that have no claim token.
func (r *ShirtRepository) ListWithoutToken(ctx context.Context, dropID uuid.UUID) ([]entity.Shirt, error) {
	query := `
		SELECT ` + shirtColumns + `
		FROM shirts s
		WHERE s.drop_id = $1
		  AND s.minted
		  AND NOT EXISTS (SELECT 1 FROM claim_tokens t WHERE t.shirt_id = s.id)
		ORDER BY s.serial`

	return r.selectShirts(ctx, query, dropID)
}

// Update writes the operator editable fields: blobs and attributes.
func (r *ShirtRepository) Update(ctx context.Context, shirt *entity.Shirt) error {
	shirt.UpdatedAt = time.Now().UTC()

	schema, err := fromShirt(shirt)
	if err != nil {
		return err
	}

	query := `
		UPDATE shirts SET
			image_blob_id = :image_blob_id,
			metadata_blob_id = :metadata_blob_id,
			attributes = :attributes,
			updated_at = :updated_at
		WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, query, schema)
	if err != nil {
		return fmt.Errorf("db.NamedExecContext: %w", err)
	}

	return requireAffected(res, domain.NotFound(errcodes.ShirtNotFound, "shirt not found"))
}

// MarkClaimed records a claim. It fails with a conflict when the shirt was
// claimed concurrently.
func (r *ShirtRepository) MarkClaimed(ctx context.Context, id uuid.UUID, claim entity.Claim) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE shirts
		SET claimed_by = $2, claim_digest = $3, claimed_at = $4, updated_at = $4
		WHERE id = $1 AND claimed_by IS NULL`,
		id, claim.Recipient.String(), claim.Digest, claim.ClaimedAt)
	if err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}

	return requireAffected(res, domain.Conflict(errcodes.ShirtAlreadyClaimed, "shirt already claimed"))
}

func (r *ShirtRepository) getBy(ctx context.Context, column string, arg any) (entity.Shirt, error) {
	query := `SELECT ` + shirtColumns + ` FROM shirts WHERE ` + column + ` = $1`

	var schema shirtSchema
	if err := r.db.GetContext(ctx, &schema, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Shirt{}, domain.NotFound(errcodes.ShirtNotFound, "shirt not found")
		}

		return entity.Shirt{}, fmt.Errorf("db.GetContext: %w", err)
	}

	return schema.toDomain()
}

func (r *ShirtRepository) selectShirts(ctx context.Context, query string, args ...any) ([]entity.Shirt, error) {
	var schemas []shirtSchema
	if err := r.db.SelectContext(ctx, &schemas, query, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}

	return shirtsToDomain(schemas)
}
