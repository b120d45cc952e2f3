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

const (
	bidColumns = `drop_id, bidder, amount, channel_session, rank, status, created_at, updated_at`
	bidOrder   = `ORDER BY amount DESC, updated_at ASC, bidder`
)

type BidRepository struct {
	db *sqlx.DB
}

func NewBidRepository(db *sqlx.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Upsert places or overwrites the bid of (drop, bidder). The drop row is
// share-locked so a bid cannot slip in while the auction is being closed.
func (r *BidRepository) Upsert(ctx context.Context, bid *entity.Bid) (entity.Bid, error) {
	var stored entity.Bid

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		drop, err := getDrop(ctx, tx, bid.DropID, "FOR SHARE")
		if err != nil {
			return err
		}

		if drop.Auction == nil {
			return domain.Unprocessable(errcodes.AuctionNotConfigured, "drop has no auction")
		}

		if drop.Auction.IsClosed() {
			return domain.Conflict(errcodes.AuctionClosed, "auction already closed")
		}

		now := time.Now().UTC()
		bid.Status = value.BidStatusPending
		bid.Rank = nil
		bid.CreatedAt = now
		bid.UpdatedAt = now

		query := `
			INSERT INTO bids (` + bidColumns + `)
			VALUES (:drop_id, :bidder, :amount, :channel_session, :rank, :status, :created_at, :updated_at)
			ON CONFLICT (drop_id, bidder) DO UPDATE SET
				amount = EXCLUDED.amount,
				channel_session = EXCLUDED.channel_session,
				rank = NULL,
				status = EXCLUDED.status,
				updated_at = EXCLUDED.updated_at
			RETURNING ` + bidColumns

		rows, err := sqlx.NamedQueryContext(ctx, tx, query, fromBid(bid))
		if err != nil {
			return fmt.Errorf("sqlx.NamedQueryContext: %w", err)
		}
		defer rows.Close()

		if !rows.Next() {
			if err = rows.Err(); err != nil {
				return fmt.Errorf("rows.Err: %w", err)
			}

			return fmt.Errorf("upsert bid: no row returned")
		}

		var schema bidSchema
		if err = rows.StructScan(&schema); err != nil {
			return fmt.Errorf("rows.StructScan: %w", err)
		}

		stored = schema.toDomain()

		return rows.Close()
	})
	if err != nil {
		return entity.Bid{}, err
	}

	return stored, nil
}

// List returns the bids of a drop in ranking order.
func (r *BidRepository) List(ctx context.Context, dropID uuid.UUID) ([]entity.Bid, error) {
	return selectBids(ctx, r.db, `SELECT `+bidColumns+` FROM bids WHERE drop_id = $1 `+bidOrder, dropID)
}

func (r *BidRepository) Get(ctx context.Context, dropID uuid.UUID, bidder value.Address) (entity.Bid, error) {
	var schema bidSchema

	err := r.db.GetContext(ctx, &schema,
		`SELECT `+bidColumns+` FROM bids WHERE drop_id = $1 AND bidder = $2`, dropID, bidder.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.Bid{}, domain.NotFound(errcodes.BidNotFound, "bid not found")
		}

		return entity.Bid{}, fmt.Errorf("db.GetContext: %w", err)
	}

	return schema.toDomain(), nil
}

func (r *BidRepository) Winners(ctx context.Context, dropID uuid.UUID) ([]entity.Bid, error) {
	return selectBids(ctx, r.db,
		`SELECT `+bidColumns+` FROM bids WHERE drop_id = $1 AND status = $2 ORDER BY rank`,
		dropID, string(value.BidStatusWon))
}

// CloseAuction locks the drop, ranks its bids with rank and stamps
// auction_closed_at, all in one transaction.
func (r *BidRepository) CloseAuction(
	ctx context.Context,
	dropID uuid.UUID,
	closedAt time.Time,
	rank func(drop entity.Drop, bids []entity.Bid) []entity.Bid,
) ([]entity.Bid, error) {
	var ranked []entity.Bid

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		drop, err := getDrop(ctx, tx, dropID, "FOR UPDATE")
		if err != nil {
			return err
		}

		if drop.Auction == nil {
			return domain.Unprocessable(errcodes.AuctionNotConfigured, "drop has no auction")
		}

		if drop.Auction.IsClosed() {
			return domain.Conflict(errcodes.AuctionClosed, "auction already closed")
		}

		bids, err := selectBids(ctx, tx, `SELECT `+bidColumns+` FROM bids WHERE drop_id = $1 `+bidOrder, dropID)
		if err != nil {
			return err
		}

		ranked = rank(drop, bids)

		for _, bid := range ranked {
			_, err = tx.ExecContext(ctx,
				`UPDATE bids SET rank = $3, status = $4 WHERE drop_id = $1 AND bidder = $2`,
				dropID, bid.Bidder.String(), bid.Rank, string(bid.Status))
			if err != nil {
				return fmt.Errorf("bid %s: tx.ExecContext: %w", bid.Bidder, err)
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE drops SET auction_closed_at = $2, updated_at = $2 WHERE id = $1`, dropID, closedAt)
		if err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ranked, nil
}

func selectBids(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]entity.Bid, error) {
	var schemas []bidSchema
	if err := sqlx.SelectContext(ctx, q, &schemas, query, args...); err != nil {
		return nil, fmt.Errorf("sqlx.SelectContext: %w", err)
	}

	return bidsToDomain(schemas), nil
}
