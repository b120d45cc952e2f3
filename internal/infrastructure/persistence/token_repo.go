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

const tokenPrimaryKey = "claim_tokens_pkey"

type ClaimTokenRepository struct {
	db *sqlx.DB
}

func NewClaimTokenRepository(db *sqlx.DB) *ClaimTokenRepository {
	return &ClaimTokenRepository{db: db}
}

// Create inserts a token. A clash on the token itself is reported as
// ClaimTokenCollision so the caller can retry with a fresh token.
func (r *ClaimTokenRepository) Create(ctx context.Context, record *entity.ClaimTokenRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO claim_tokens (token, drop_id, shirt_id, created_at)
		VALUES (:token, :drop_id, :shirt_id, :created_at)`,
		claimTokenSchema{
			Token:     record.Token.String(),
			DropID:    record.DropID,
			ShirtID:   record.ShirtID,
			CreatedAt: record.CreatedAt,
		})
	if err != nil {
		if constraint, ok := uniqueConstraint(err); ok {
			if constraint == tokenPrimaryKey {
				return domain.Conflict(errcodes.ClaimTokenCollision, "claim token already taken")
			}

			return domain.Conflict(errcodes.ShirtTokenExists, "shirt already has a claim token")
		}

		return fmt.Errorf("db.NamedExecContext: %w", err)
	}

	return nil
}

func (r *ClaimTokenRepository) Get(ctx context.Context, token value.ClaimToken) (entity.ClaimTokenRecord, error) {
	return r.getBy(ctx, "token", token.String())
}

func (r *ClaimTokenRepository) GetByShirt(ctx context.Context, shirtID uuid.UUID) (entity.ClaimTokenRecord, error) {
	return r.getBy(ctx, "shirt_id", shirtID)
}

func (r *ClaimTokenRepository) getBy(ctx context.Context, column string, arg any) (entity.ClaimTokenRecord, error) {
	query := `SELECT token, drop_id, shirt_id, created_at FROM claim_tokens WHERE ` + column + ` = $1`

	var schema claimTokenSchema
	if err := r.db.GetContext(ctx, &schema, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.ClaimTokenRecord{}, domain.NotFound(errcodes.ClaimTokenNotFound, "claim token not found")
		}

		return entity.ClaimTokenRecord{}, fmt.Errorf("db.GetContext: %w", err)
	}

	return schema.toDomain(), nil
}
