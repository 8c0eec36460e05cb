package main

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/agentcore/escrowd/internal/core/domain"
	httpinterface "github.com/agentcore/escrowd/internal/interfaces/http"
	"github.com/agentcore/escrowd/pkg/amount"
	"github.com/agentcore/escrowd/pkg/sigverify"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/thanhpk/randstr"
	"github.com/urfave/cli/v2"
)

var lockFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "trade_id",
		Usage: "hex encoded 32-byte identifier of the trade, random if omitted",
		Value: "",
	},
	&cli.StringFlag{
		Name:     "seller",
		Usage:    "address of the seller",
		Required: true,
	},
	&cli.StringFlag{
		Name:     "arbiter",
		Usage:    "address of the arbiter",
		Required: true,
	},
	&cli.StringFlag{
		Name:     "hash_lock",
		Usage:    "keccak256 hash of the preimage, see `preimage`",
		Required: true,
	},
	&cli.DurationFlag{
		Name:  "duration",
		Usage: "time after which the buyer can claim a refund",
		Value: 24 * time.Hour,
	},
	&cli.StringFlag{
		Name:     "amount",
		Usage:    "decimal amount to deposit",
		Required: true,
	},
}

var tradeIDFlag = cli.StringFlag{
	Name:     "trade_id",
	Usage:    "hex encoded 32-byte identifier of the trade",
	Required: true,
}

var (
	lock = cli.Command{
		Name:   "lock",
		Usage:  "lock a deposit of the local key into a new trade",
		Flags:  lockFlags,
		Action: lockAction,
	}

	withdraw = cli.Command{
		Name:  "withdraw",
		Usage: "pay the trade deposit to the seller by revealing the preimage",
		Flags: []cli.Flag{
			&tradeIDFlag,
			&cli.StringFlag{
				Name:     "preimage",
				Usage:    "hex encoded preimage of the trade hash lock",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "signature_a",
				Usage:    "hex encoded signature of the buyer or the seller",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "signature_b",
				Usage:    "hex encoded signature of the other party",
				Required: true,
			},
		},
		Action: withdrawAction,
	}

	dispute = cli.Command{
		Name:  "dispute",
		Usage: "release the trade deposit to a recipient with 2 of 3 signatures",
		Flags: []cli.Flag{
			&tradeIDFlag,
			&cli.StringFlag{
				Name:     "recipient",
				Usage:    "address receiving the trade deposit",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "signature_a",
				Usage:    "hex encoded signature of one of the trade parties",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "signature_b",
				Usage:    "hex encoded signature of another trade party",
				Required: true,
			},
		},
		Action: disputeAction,
	}

	refund = cli.Command{
		Name:   "refund",
		Usage:  "refund the trade deposit to the buyer once the timelock expired",
		Flags:  []cli.Flag{&tradeIDFlag},
		Action: refundAction,
	}

	trade = cli.Command{
		Name:   "trade",
		Usage:  "get info about a trade",
		Flags:  []cli.Flag{&tradeIDFlag},
		Action: tradeAction,
	}

	trades = cli.Command{
		Name:  "trades",
		Usage: "list trades, optionally filtered by status or participant",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "status",
				Usage: "one of LOCKED, COMPLETED, REFUNDED",
			},
			&cli.StringFlag{
				Name:  "participant",
				Usage: "address of buyer, seller or arbiter of the trades",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "the number of the page to fetch",
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "the number of trades per page",
			},
		},
		Action: tradesAction,
	}

	balance = cli.Command{
		Name:  "balance",
		Usage: "get the amount paid out to an address, defaults to the local key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "the address to get the balance of",
			},
		},
		Action: balanceAction,
	}

	stats = cli.Command{
		Name:   "stats",
		Usage:  "get aggregated trade and custody figures",
		Action: statsAction,
	}
)

func lockAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}
	key, err := getPrivateKeyFromState()
	if err != nil {
		return err
	}
	precision, err := getPrecisionFromState()
	if err != nil {
		return err
	}

	req, args, err := newLockRequest(
		ctx.String("trade_id"), ctx.String("seller"), ctx.String("arbiter"),
		ctx.String("hash_lock"), ctx.String("amount"), ctx.Duration("duration"),
		precision,
	)
	if err != nil {
		return err
	}
	if err := signLockRequest(req, args, key); err != nil {
		return err
	}

	var reply httpinterface.TradeInfo
	if err := client.post("/trades", req, &reply); err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func withdrawAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}
	tradeID, err := domain.ParseTradeID(ctx.String("trade_id"))
	if err != nil {
		return err
	}

	var reply httpinterface.TradeInfo
	if err := client.post(
		tradePath(tradeID, "withdraw"),
		httpinterface.WithdrawRequest{
			Preimage:   ctx.String("preimage"),
			SignatureA: ctx.String("signature_a"),
			SignatureB: ctx.String("signature_b"),
		},
		&reply,
	); err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func disputeAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}
	tradeID, err := domain.ParseTradeID(ctx.String("trade_id"))
	if err != nil {
		return err
	}

	var reply httpinterface.TradeInfo
	if err := client.post(
		tradePath(tradeID, "dispute"),
		httpinterface.DisputeRequest{
			Recipient:  ctx.String("recipient"),
			SignatureA: ctx.String("signature_a"),
			SignatureB: ctx.String("signature_b"),
		},
		&reply,
	); err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func refundAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}
	tradeID, err := domain.ParseTradeID(ctx.String("trade_id"))
	if err != nil {
		return err
	}

	var reply httpinterface.TradeInfo
	if err := client.post(tradePath(tradeID, "refund"), nil, &reply); err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func tradeAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}
	tradeID, err := domain.ParseTradeID(ctx.String("trade_id"))
	if err != nil {
		return err
	}

	var reply httpinterface.TradeInfo
	if err := client.get(tradePath(tradeID, ""), nil, &reply); err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func tradesAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	query := url.Values{}
	if v := ctx.String("status"); v != "" {
		query.Set("status", v)
	}
	if v := ctx.String("participant"); v != "" {
		query.Set("participant", v)
	}
	if v := ctx.Int("page"); v > 0 {
		query.Set("page", strconv.Itoa(v))
	}
	if v := ctx.Int("size"); v > 0 {
		query.Set("size", strconv.Itoa(v))
	}

	var reply httpinterface.ListTradesResponse
	if err := client.get("/trades", query, &reply); err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func balanceAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	address := ctx.String("address")
	if address == "" {
		key, err := getPrivateKeyFromState()
		if err != nil {
			return err
		}
		address = sigverify.PubkeyToAddress(key.PubKey()).Hex()
	}
	addr, err := sigverify.ParseAddress(address)
	if err != nil {
		return err
	}

	var reply httpinterface.BalanceResponse
	if err := client.get("/balances/"+addr.Hex(), nil, &reply); err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func statsAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	var reply httpinterface.StatsResponse
	if err := client.get("/stats", nil, &reply); err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

// newLockRequest validates the given args and returns an unsigned lock
// request along with the args the buyer signature commits to. A random trade
// id is generated if tradeIDHex is empty.
func newLockRequest(
	tradeIDHex, seller, arbiter, hashLock, amountStr string,
	duration time.Duration, precision int32,
) (*httpinterface.LockRequest, domain.LockArgs, error) {
	var args domain.LockArgs

	if tradeIDHex == "" {
		tradeIDHex = randomTradeIDHex()
	}
	tradeID, err := domain.ParseTradeID(tradeIDHex)
	if err != nil {
		return nil, args, err
	}
	sellerAddr, err := sigverify.ParseAddress(seller)
	if err != nil {
		return nil, args, fmt.Errorf("invalid seller: %s", err)
	}
	arbiterAddr, err := sigverify.ParseAddress(arbiter)
	if err != nil {
		return nil, args, fmt.Errorf("invalid arbiter: %s", err)
	}
	hash, err := sigverify.ParseHash(hashLock)
	if err != nil {
		return nil, args, fmt.Errorf("invalid hash lock: %s", err)
	}
	units, err := amount.ToBaseUnits(amountStr, precision)
	if err != nil {
		return nil, args, err
	}
	if duration < time.Second {
		return nil, args, domain.ErrInvalidLockDuration
	}

	args = domain.LockArgs{
		TradeID:      tradeID,
		Seller:       sellerAddr,
		Arbiter:      arbiterAddr,
		HashLock:     hash,
		LockDuration: int64(duration / time.Second),
		Amount:       units,
	}
	return &httpinterface.LockRequest{
		TradeID:      tradeID.String(),
		Seller:       sellerAddr.Hex(),
		Arbiter:      arbiterAddr.Hex(),
		HashLock:     hash.Hex(),
		LockDuration: args.LockDuration,
		Amount:       units,
	}, args, nil
}

// signLockRequest fills buyer and buyer signature of the request with the
// given key.
func signLockRequest(
	req *httpinterface.LockRequest, args domain.LockArgs, key *btcec.PrivateKey,
) error {
	sig, err := sigverify.Sign(domain.LockDigest(args), key)
	if err != nil {
		return err
	}
	req.Buyer = sigverify.PubkeyToAddress(key.PubKey()).Hex()
	req.BuyerSignature = hexEncode(sig)
	return nil
}

func randomTradeIDHex() string {
	return "0x" + randstr.Hex(domain.TradeIDLength)
}

func tradePath(tradeID domain.TradeID, action string) string {
	path := "/trades/" + tradeID.String()
	if action != "" {
		path += "/" + action
	}
	return path
}

func hexEncode(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
