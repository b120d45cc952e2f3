package auction

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shirtdrop/internal/domain"
	"shirtdrop/internal/domain/entity"
	"shirtdrop/internal/domain/value"
	"shirtdrop/internal/metrics"
	"shirtdrop/pkg/contextx"
	"shirtdrop/pkg/errcodes"
	"shirtdrop/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const (
	amountPlaces     = 6
	maxSessionLength = 256

	TriggerAdmin    = "admin"
	TriggerSchedule = "schedule"
	TriggerWatcher  = "watcher"
)

type DropRepository interface {
	Get(ctx context.Context, id uuid.UUID) (entity.Drop, error)
	ListOverdueAuctions(ctx context.Context, now time.Time) ([]entity.Drop, error)
}

type BidRepository interface {
	Upsert(ctx context.Context, bid *entity.Bid) (entity.Bid, error)
	List(ctx context.Context, dropID uuid.UUID) ([]entity.Bid, error)
	Get(ctx context.Context, dropID uuid.UUID, bidder value.Address) (entity.Bid, error)
	Winners(ctx context.Context, dropID uuid.UUID) ([]entity.Bid, error)
	CloseAuction(
		ctx context.Context,
		dropID uuid.UUID,
		closedAt time.Time,
		rank func(drop entity.Drop, bids []entity.Bid) []entity.Bid,
	) ([]entity.Bid, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entity.Event)
}

type PlaceBidInput struct {
	DropID uuid.UUID
	// Session is the authenticated address; Bidder, when given, must match it.
	Session        value.Address
	Bidder         string
	Amount         string
	ChannelSession string
}

type Service struct {
	drops  DropRepository
	bids   BidRepository
	events EventPublisher
	now    func() time.Time
}

func NewService(drops DropRepository, bids BidRepository, events EventPublisher) *Service {
	return &Service{
		drops:  drops,
		bids:   bids,
		events: events,
		now:    time.Now,
	}
}

func (s *Service) PlaceBid(ctx context.Context, in PlaceBidInput) (entity.Bid, error) {
	if in.Bidder != "" {
		bidder, err := value.ParseAddress(in.Bidder)
		if err != nil {
			return entity.Bid{}, domain.InvalidArgument(errcodes.InvalidAddress, err.Error())
		}

		if bidder != in.Session {
			return entity.Bid{}, domain.Forbidden(errcodes.BidderMismatch, "bidder does not match the signed in address")
		}
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return entity.Bid{}, err
	}

	session := strings.TrimSpace(in.ChannelSession)
	if len(session) > maxSessionLength {
		return entity.Bid{}, domain.InvalidArgument(errcodes.ValidationError, "channel session is too long")
	}

	drop, err := s.drops.Get(ctx, in.DropID)
	if err != nil {
		return entity.Bid{}, fmt.Errorf("drops.Get: %w", err)
	}

	if !drop.HasAuction() {
		return entity.Bid{}, domain.Unprocessable(errcodes.AuctionNotConfigured, "drop has no auction")
	}

	if drop.Auction.IsClosed() {
		return entity.Bid{}, domain.Conflict(errcodes.AuctionClosed, "auction already closed")
	}

	if !s.now().Before(drop.Auction.Deadline) {
		return entity.Bid{}, domain.Conflict(errcodes.AuctionDeadlinePassed, "auction deadline has passed")
	}

	bid, err := s.bids.Upsert(ctx, &entity.Bid{
		DropID:         in.DropID,
		Bidder:         in.Session,
		Amount:         amount,
		ChannelSession: session,
	})
	if err != nil {
		return entity.Bid{}, fmt.Errorf("bids.Upsert: %w", err)
	}

	metrics.Bids.Inc()

	return bid, nil
}

// ParseAmount accepts a positive decimal with at most six fractional digits.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, domain.InvalidArgument(errcodes.InvalidAmount, "amount must be a decimal number")
	}

	if !amount.IsPositive() {
		return decimal.Decimal{}, domain.InvalidArgument(errcodes.InvalidAmount, "amount must be positive")
	}

	if !amount.Equal(amount.Truncate(amountPlaces)) {
		return decimal.Decimal{}, domain.InvalidArgument(errcodes.InvalidAmount, "amount has more than 6 decimal places")
	}

	return amount, nil
}

func (s *Service) ListBids(ctx context.Context, dropID uuid.UUID) ([]entity.Bid, error) {
	if _, err := s.drops.Get(ctx, dropID); err != nil {
		return nil, fmt.Errorf("drops.Get: %w", err)
	}

	bids, err := s.bids.List(ctx, dropID)
	if err != nil {
		return nil, fmt.Errorf("bids.List: %w", err)
	}

	return bids, nil
}

func (s *Service) GetBid(ctx context.Context, dropID uuid.UUID, rawBidder string) (entity.Bid, error) {
	bidder, err := value.ParseAddress(rawBidder)
	if err != nil {
		return entity.Bid{}, domain.InvalidArgument(errcodes.InvalidAddress, err.Error())
	}

	bid, err := s.bids.Get(ctx, dropID, bidder)
	if err != nil {
		return entity.Bid{}, fmt.Errorf("bids.Get: %w", err)
	}

	return bid, nil
}

func (s *Service) Winners(ctx context.Context, dropID uuid.UUID) ([]entity.Bid, error) {
	if _, err := s.drops.Get(ctx, dropID); err != nil {
		return nil, fmt.Errorf("drops.Get: %w", err)
	}

	winners, err := s.bids.Winners(ctx, dropID)
	if err != nil {
		return nil, fmt.Errorf("bids.Winners: %w", err)
	}

	return winners, nil
}

// Close settles the auction regardless of its deadline. Closing twice is a
// conflict.
func (s *Service) Close(ctx context.Context, dropID uuid.UUID, trigger string) (entity.AuctionResult, error) {
	closedAt := s.now().UTC()

	ranked, err := s.bids.CloseAuction(ctx, dropID, closedAt, Rank)
	if err != nil {
		return entity.AuctionResult{}, fmt.Errorf("bids.CloseAuction: %w", err)
	}

	result := entity.AuctionResult{DropID: dropID, ClosedAt: closedAt, Winners: []entity.Bid{}}

	for _, bid := range ranked {
		if bid.Status == value.BidStatusWon {
			result.Winners = append(result.Winners, bid)
		} else {
			result.Losers++
		}
	}

	metrics.AuctionsClosed.WithLabelValues(trigger).Inc()

	logger(ctx).Info("auction closed",
		slog.String(logx.FieldDropID, dropID.String()),
		slog.String("trigger", trigger),
		slog.Int("winners", len(result.Winners)),
		slog.Int("losers", result.Losers),
	)

	s.events.Publish(ctx, entity.Event{
		Type:   entity.EventAuctionClosed,
		DropID: dropID,
		Count:  len(result.Winners),
		At:     closedAt,
	})

	return result, nil
}

// CloseIfDue is used by the scheduled task: a deadline moved after the task
// was queued, or an auction closed by other means, is skipped.
func (s *Service) CloseIfDue(ctx context.Context, dropID uuid.UUID, trigger string) (bool, error) {
	drop, err := s.drops.Get(ctx, dropID)
	if err != nil {
		return false, fmt.Errorf("drops.Get: %w", err)
	}

	if !drop.HasAuction() || drop.Auction.IsClosed() || s.now().Before(drop.Auction.Deadline) {
		return false, nil
	}

	if _, err = s.Close(ctx, dropID, trigger); err != nil {
		if domain.IsCode(err, errcodes.AuctionClosed) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// CloseOverdue closes every auction whose deadline passed. Failures are
// logged per drop so one broken drop does not block the rest.
func (s *Service) CloseOverdue(ctx context.Context) (int, error) {
	drops, err := s.drops.ListOverdueAuctions(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("drops.ListOverdueAuctions: %w", err)
	}

	closed := 0

	for _, drop := range drops {
		if _, err = s.Close(ctx, drop.ID, TriggerWatcher); err != nil {
			if !domain.IsCode(err, errcodes.AuctionClosed) {
				logger(ctx).Error("close overdue auction",
					logx.Error(err),
					slog.String(logx.FieldDropID, drop.ID.String()),
				)
			}

			continue
		}

		closed++
	}

	return closed, nil
}

// Rank orders bids by amount desc then by earlier update, marks the first
// auction slots as won and the rest as lost, numbering them from 1.
func Rank(drop entity.Drop, bids []entity.Bid) []entity.Bid {
	slots := 0
	if drop.Auction != nil {
		slots = drop.Auction.Slots
	}

	ranked := make([]entity.Bid, len(bids))
	copy(ranked, bids)

	slices.SortStableFunc(ranked, func(a, b entity.Bid) int {
		switch {
		case a.Outranks(b):
			return -1
		case b.Outranks(a):
			return 1
		default:
			return 0
		}
	})

	for i := range ranked {
		rank := i + 1
		ranked[i].Rank = &rank

		if i < slots {
			ranked[i].Status = value.BidStatusWon
		} else {
			ranked[i].Status = value.BidStatusLost
		}
	}

	return ranked
}
