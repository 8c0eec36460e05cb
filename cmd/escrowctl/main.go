package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"
)

var (
	escrowctlDataDir = btcutil.AppDataDir("escrowctl", false)
	statePath        = filepath.Join(escrowctlDataDir, "state.json")
)

func main() {
	app := newApp()

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Version = "0.0.1"
	app.Name = "escrowctl"
	app.Usage = "Command line interface for escrowd users and operators"
	app.Commands = append(
		app.Commands,
		&config,
		&keygen,
		&preimage,
		&sign,
		&lock,
		&withdraw,
		&dispute,
		&refund,
		&trade,
		&trades,
		&balance,
		&stats,
		&webhook,
	)
	return app
}

func getState() (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath)
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("invalid config state: %s", err)
	}

	return data, nil
}

func setState(data map[string]string) error {
	if _, err := os.Stat(escrowctlDataDir); os.IsNotExist(err) {
		if err := os.MkdirAll(escrowctlDataDir, os.ModeDir|0755); err != nil {
			return err
		}
	}

	currentData := map[string]string{}
	if _, err := os.Stat(statePath); err == nil {
		state, err := getState()
		if err != nil {
			return err
		}
		currentData = state
	}

	mergedData := merge(currentData, data)

	jsonString, err := json.Marshal(mergedData)
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath, jsonString, 0600); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func merge(maps ...map[string]string) map[string]string {
	merge := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merge[k] = v
		}
	}
	return merge
}

func printRespJSON(resp interface{}) {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}

	fmt.Println(string(jsonBytes))
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[escrowctl] %v\n", err)
	}
	os.Exit(1)
}
