package main

import (
	"fmt"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/pkg/sigverify"
	"github.com/thanhpk/randstr"
	"github.com/urfave/cli/v2"
)

var (
	keygen = cli.Command{
		Name:  "keygen",
		Usage: "generate a new private key and print its address",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "save",
				Usage: "store the generated key in the local state",
				Value: false,
			},
		},
		Action: keygenAction,
	}

	preimage = cli.Command{
		Name:  "preimage",
		Usage: "generate a random preimage and print its hash lock",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "preimage",
				Usage: "hex encoded preimage to hash instead of generating a new one",
				Value: "",
			},
		},
		Action: preimageAction,
	}

	sign = cli.Command{
		Name:  "sign",
		Usage: "sign lock requests and withdrawal authorizations with the local key",
		Subcommands: []*cli.Command{
			signLockCmd, signWithdrawCmd, signDisputeCmd,
		},
	}

	signLockCmd = &cli.Command{
		Name:   "lock",
		Usage:  "sign a lock request to be submitted to the daemon by a third party",
		Flags:  lockFlags,
		Action: signLockAction,
	}

	signWithdrawCmd = &cli.Command{
		Name:  "withdraw",
		Usage: "sign a withdrawal of the trade deposit with the preimage",
		Flags: []cli.Flag{
			&tradeIDFlag,
			&cli.StringFlag{
				Name:     "preimage",
				Usage:    "hex encoded preimage of the trade hash lock",
				Required: true,
			},
		},
		Action: signWithdrawAction,
	}

	signDisputeCmd = &cli.Command{
		Name:  "dispute",
		Usage: "sign the release of the trade deposit to a recipient",
		Flags: []cli.Flag{
			&tradeIDFlag,
			&cli.StringFlag{
				Name:     "recipient",
				Usage:    "address receiving the trade deposit",
				Required: true,
			},
		},
		Action: signDisputeAction,
	}
)

func keygenAction(ctx *cli.Context) error {
	key, err := sigverify.NewPrivateKey()
	if err != nil {
		return err
	}
	keyHex := sigverify.PrivateKeyToHex(key)
	addr := sigverify.PubkeyToAddress(key.PubKey())

	if ctx.Bool("save") {
		if err := setState(map[string]string{privateKeyKey: keyHex}); err != nil {
			return err
		}
	}

	printRespJSON(map[string]string{
		"private_key": keyHex,
		"address":     addr.Hex(),
	})
	return nil
}

func preimageAction(ctx *cli.Context) error {
	preimageHex := ctx.String("preimage")
	if preimageHex == "" {
		preimageHex = randomPreimageHex()
	}
	preimage, err := sigverify.DecodeHex(preimageHex)
	if err != nil {
		return fmt.Errorf("invalid preimage: %s", err)
	}
	if len(preimage) != domain.PreimageLength {
		return fmt.Errorf("preimage must be %d bytes", domain.PreimageLength)
	}

	printRespJSON(map[string]string{
		"preimage":  preimageHex,
		"hash_lock": domain.HashPreimage(preimage).Hex(),
	})
	return nil
}

// randomPreimageHex returns a 0x prefixed random preimage of
// domain.PreimageLength bytes.
func randomPreimageHex() string {
	return "0x" + randstr.Hex(domain.PreimageLength)
}

func signLockAction(ctx *cli.Context) error {
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

	printRespJSON(req)
	return nil
}

func signWithdrawAction(ctx *cli.Context) error {
	tradeID, err := domain.ParseTradeID(ctx.String("trade_id"))
	if err != nil {
		return err
	}
	preimage, err := sigverify.DecodeHex(ctx.String("preimage"))
	if err != nil {
		return fmt.Errorf("invalid preimage: %s", err)
	}

	return printSignature(domain.PreimageDigest(tradeID, preimage))
}

func signDisputeAction(ctx *cli.Context) error {
	tradeID, err := domain.ParseTradeID(ctx.String("trade_id"))
	if err != nil {
		return err
	}
	recipient, err := sigverify.ParseAddress(ctx.String("recipient"))
	if err != nil {
		return err
	}

	return printSignature(domain.ArbitrationDigest(tradeID, recipient))
}

func printSignature(digest domain.Hash) error {
	key, err := getPrivateKeyFromState()
	if err != nil {
		return err
	}
	sig, err := sigverify.Sign(digest, key)
	if err != nil {
		return err
	}

	printRespJSON(map[string]string{
		"signer":    sigverify.PubkeyToAddress(key.PubKey()).Hex(),
		"digest":    digest.Hex(),
		"signature": hexEncode(sig),
	})
	return nil
}
