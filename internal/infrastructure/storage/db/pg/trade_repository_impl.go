package postgresdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	selectTradeColumns = `SELECT id, buyer, seller, arbiter, amount::TEXT,
hash_lock, timelock, status, locked_at, resolution::TEXT FROM trade`

	insertTradeQuery = `INSERT INTO trade (
id, buyer, seller, arbiter, amount, hash_lock, timelock, status, locked_at,
resolution, payout_settled
) VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7, $8, $9, $10::JSONB, $11)
ON CONFLICT (id) DO NOTHING`

	updateTradeQuery = `UPDATE trade SET status = $2, resolution = $3::JSONB,
payout_settled = $4 WHERE id = $1`
)

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type tradeRepositoryImpl struct {
	pool   *pgxpool.Pool
	execTx func(ctx context.Context, txBody func(pgx.Tx) error) error
}

func NewTradeRepositoryImpl(
	pool *pgxpool.Pool,
	execTx func(ctx context.Context, txBody func(pgx.Tx) error) error,
) domain.TradeRepository {
	return &tradeRepositoryImpl{pool, execTx}
}

func (t *tradeRepositoryImpl) AddTrade(
	ctx context.Context, trade *domain.Trade,
) error {
	resolution, err := serializeResolution(trade.Resolution)
	if err != nil {
		return err
	}

	tag, err := t.pool.Exec(
		ctx, insertTradeQuery,
		trade.ID.Bytes(), trade.Buyer.Bytes(), trade.Seller.Bytes(),
		trade.Arbiter.Bytes(), strconv.FormatUint(trade.Amount, 10),
		trade.HashLock.Bytes(), trade.Timelock, int32(trade.Status),
		trade.LockedAt, resolution, isPayoutSettled(trade),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateTradeId
	}
	return nil
}

func (t *tradeRepositoryImpl) GetTrade(
	ctx context.Context, tradeID domain.TradeID,
) (*domain.Trade, error) {
	return getTrade(ctx, t.pool, tradeID, false)
}

func (t *tradeRepositoryImpl) GetAllTrades(
	ctx context.Context, filter domain.TradeFilter, page *domain.Page,
) ([]*domain.Trade, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)

	if filter.Status != nil {
		args = append(args, int32(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Participant != nil {
		args = append(args, filter.Participant.Bytes())
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(buyer = $%d OR seller = $%d OR arbiter = $%d)", n, n, n,
		))
	}

	query := selectTradeColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY locked_at, id"
	if page != nil {
		args = append(args, page.Size, (page.Number-1)*page.Size)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	return findTrades(ctx, t.pool, query, args...)
}

func (t *tradeRepositoryImpl) GetTradesWithPendingPayout(
	ctx context.Context,
) ([]*domain.Trade, error) {
	query := selectTradeColumns +
		" WHERE resolution IS NOT NULL AND NOT payout_settled" +
		" ORDER BY locked_at, id"
	return findTrades(ctx, t.pool, query)
}

func (t *tradeRepositoryImpl) UpdateTrade(
	ctx context.Context,
	tradeID domain.TradeID,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	return t.execTx(ctx, func(tx pgx.Tx) error {
		currentTrade, err := getTrade(ctx, tx, tradeID, true)
		if err != nil {
			return err
		}

		updatedTrade, err := updateFn(currentTrade)
		if err != nil {
			return err
		}

		resolution, err := serializeResolution(updatedTrade.Resolution)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			ctx, updateTradeQuery,
			tradeID.Bytes(), int32(updatedTrade.Status), resolution,
			isPayoutSettled(updatedTrade),
		)
		return err
	})
}

func getTrade(
	ctx context.Context, q querier, tradeID domain.TradeID, forUpdate bool,
) (*domain.Trade, error) {
	query := selectTradeColumns + " WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	trade, err := scanTrade(q.QueryRow(ctx, query, tradeID.Bytes()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTradeNotFound
		}
		return nil, err
	}
	return trade, nil
}

func findTrades(
	ctx context.Context, q querier, query string, args ...interface{},
) ([]*domain.Trade, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var (
		id, buyer, seller, arbiter, hashLock []byte
		amount                               string
		timelock, lockedAt                   int64
		status                               int32
		resolution                           sql.NullString
	)
	if err := row.Scan(
		&id, &buyer, &seller, &arbiter, &amount, &hashLock,
		&timelock, &status, &lockedAt, &resolution,
	); err != nil {
		return nil, err
	}

	amountValue, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}

	trade := &domain.Trade{
		Amount:   amountValue,
		Timelock: timelock,
		Status:   domain.TradeStatus(status),
		LockedAt: lockedAt,
	}
	copy(trade.ID[:], id)
	copy(trade.Buyer[:], buyer)
	copy(trade.Seller[:], seller)
	copy(trade.Arbiter[:], arbiter)
	copy(trade.HashLock[:], hashLock)

	if resolution.Valid {
		trade.Resolution = &domain.Resolution{}
		if err := json.Unmarshal(
			[]byte(resolution.String), trade.Resolution,
		); err != nil {
			return nil, fmt.Errorf("invalid stored resolution: %w", err)
		}
	}
	return trade, nil
}

func isPayoutSettled(trade *domain.Trade) bool {
	return trade.Resolution != nil && trade.Resolution.PayoutSettled
}

func serializeResolution(resolution *domain.Resolution) (*string, error) {
	if resolution == nil {
		return nil, nil
	}
	buf, err := json.Marshal(resolution)
	if err != nil {
		return nil, err
	}
	s := string(buf)
	return &s, nil
}
