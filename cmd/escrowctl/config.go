package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/agentcore/escrowd/pkg/amount"
	"github.com/agentcore/escrowd/pkg/sigverify"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/urfave/cli/v2"
)

const (
	daemonKey     = "daemon"
	privateKeyKey = "private_key"
	precisionKey  = "precision"
)

var (
	daemonFlag = cli.StringFlag{
		Name:  "daemon",
		Usage: "escrowd REST interface base url",
		Value: "http://localhost:9945",
	}

	privateKeyFlag = cli.StringFlag{
		Name:  "private_key",
		Usage: "hex encoded secp256k1 private key used to sign messages",
		Value: "",
	}

	precisionFlag = cli.IntFlag{
		Name:  "precision",
		Usage: "number of decimal places of an amount unit",
		Value: int(amount.DefaultPrecision),
	}
)

var config = cli.Command{
	Name:   "config",
	Usage:  "Print local configuration of the escrowctl CLI",
	Action: configAction,
	Subcommands: []*cli.Command{
		{
			Name:   "set",
			Usage:  "set a <key> <value> in the local state",
			Action: configSetAction,
		},
		{
			Name:   "init",
			Usage:  "initialize the local state with flags",
			Action: configInitAction,
			Flags: []cli.Flag{
				&daemonFlag,
				&privateKeyFlag,
				&precisionFlag,
			},
		},
	},
}

func configAction(ctx *cli.Context) error {
	state, err := getState()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(state))
	for key := range state {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := state[key]
		if key == privateKeyKey && value != "" {
			value = "(set)"
		}
		fmt.Println(key + ": " + value)
	}

	return nil
}

func configInitAction(c *cli.Context) error {
	state := map[string]string{
		daemonKey:    c.String("daemon"),
		precisionKey: strconv.Itoa(c.Int("precision")),
	}
	if key := c.String("private_key"); key != "" {
		if _, err := sigverify.PrivateKeyFromHex(key); err != nil {
			return err
		}
		state[privateKeyKey] = key
	}

	return setState(state)
}

func configSetAction(c *cli.Context) error {
	if c.NArg() < 2 {
		return errors.New("key and value are missing")
	}

	key := c.Args().Get(0)
	value := c.Args().Get(1)

	switch key {
	case privateKeyKey:
		if _, err := sigverify.PrivateKeyFromHex(value); err != nil {
			return err
		}
	case precisionKey:
		if _, err := parsePrecision(value); err != nil {
			return err
		}
	}

	if err := setState(map[string]string{key: value}); err != nil {
		return err
	}

	fmt.Printf("%s %s has been set\n", key, value)

	return nil
}

func getPrivateKeyFromState() (*btcec.PrivateKey, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	key, ok := state[privateKeyKey]
	if !ok || key == "" {
		return nil, errors.New(
			"set private key with `config set private_key` or `keygen --save`",
		)
	}
	return sigverify.PrivateKeyFromHex(key)
}

func getPrecisionFromState() (int32, error) {
	state, err := getState()
	if err != nil {
		return 0, err
	}
	value, ok := state[precisionKey]
	if !ok {
		return amount.DefaultPrecision, nil
	}
	return parsePrecision(value)
}

func parsePrecision(value string) (int32, error) {
	precision, err := strconv.Atoi(value)
	if err != nil || precision < 0 || precision > 18 {
		return 0, amount.ErrInvalidPrecision
	}
	return int32(precision), nil
}
