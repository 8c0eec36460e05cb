package db_test

import (
	"crypto/rand"
	"testing"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/stretchr/testify/require"
)

const (
	baseTimestamp = int64(1700000000)
	oneHour       = int64(3600)
)

func makeRandomTrade(t *testing.T, lockedAt int64) *domain.Trade {
	var args domain.LockArgs
	copy(args.TradeID[:], randomBytes(domain.TradeIDLength))
	copy(args.Buyer[:], randomBytes(20))
	copy(args.Seller[:], randomBytes(20))
	copy(args.Arbiter[:], randomBytes(20))
	args.HashLock = domain.HashPreimage(randomBytes(domain.PreimageLength))
	args.LockDuration = oneHour
	args.Amount = uint64(lockedAt%1000) + 1

	trade, err := domain.NewTrade(args, lockedAt)
	require.NoError(t, err)
	return trade
}

func randomBytes(len int) []byte {
	b := make([]byte, len)
	//nolint
	rand.Read(b)
	return b
}
