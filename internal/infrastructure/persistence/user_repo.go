package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/value"
	"shirtdrop/pkg/errcodes"
)

const userColumns = `address, provider, subject, email, name, avatar_url, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates the user on first sign in and refreshes the profile on the
// following ones. created_at is kept. The row is only updated for the login
// that owns the address, and a login owns at most one address.
func (r *UserRepository) Upsert(ctx context.Context, user *entity.User) (entity.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:address, :provider, :subject, :email, :name, :avatar_url, :created_at, :updated_at)
		ON CONFLICT (address) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at
		WHERE users.provider = EXCLUDED.provider AND users.subject = EXCLUDED.subject
		RETURNING ` + userColumns

	rows, err := r.db.NamedQueryContext(ctx, query, fromUser(user))
	if err != nil {
		if _, ok := uniqueConstraint(err); ok {
			return entity.User{}, domain.Unauthorized(errcodes.LoginBound, "login is bound to another address")
		}

		return entity.User{}, fmt.Errorf("db.NamedQueryContext: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			if _, ok := uniqueConstraint(err); ok {
				return entity.User{}, domain.Unauthorized(errcodes.LoginBound, "login is bound to another address")
			}

			return entity.User{}, fmt.Errorf("rows.Err: %w", err)
		}

		return entity.User{}, domain.Unauthorized(errcodes.AddressBound, "address belongs to another login")
	}

	var schema userSchema
	if err = rows.StructScan(&schema); err != nil {
		return entity.User{}, fmt.Errorf("rows.StructScan: %w", err)
	}

	return schema.toDomain(), nil
}

func (r *UserRepository) Get(ctx context.Context, address value.Address) (entity.User, error) {
	var schema userSchema

	err := r.db.GetContext(ctx, &schema, `SELECT `+userColumns+` FROM users WHERE address = $1`, address.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.User{}, domain.NotFound(errcodes.UserNotFound, "user not found")
		}

		return entity.User{}, fmt.Errorf("db.GetContext: %w", err)
	}

	return schema.toDomain(), nil
}
