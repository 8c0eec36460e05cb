package main

import (
	"fmt"
	"net/url"

	"github.com/agentcore/escrowd/internal/core/application/pubsub"
	httpinterface "github.com/agentcore/escrowd/internal/interfaces/http"
	"github.com/urfave/cli/v2"
)

var eventFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:  "trade_locked_event",
		Usage: "triggers the webhook endpoint whenever a trade is locked",
		Value: false,
	},
	&cli.BoolFlag{
		Name:  "trade_withdrawn_event",
		Usage: "triggers the webhook endpoint whenever a trade deposit is paid out with preimage or arbitration",
		Value: false,
	},
	&cli.BoolFlag{
		Name:  "trade_refunded_event",
		Usage: "triggers the webhook endpoint whenever a trade deposit is refunded to the buyer",
		Value: false,
	},
	&cli.BoolFlag{
		Name:  "any_event",
		Usage: "triggers the webhook endpoint whenever any event occurs",
		Value: false,
	},
}

var (
	webhook = cli.Command{
		Name:  "webhook",
		Usage: "add, list or remove webhooks",
		Subcommands: []*cli.Command{
			webhookAddCmd, webhookListCmd, webhookRemoveCmd,
		},
	}

	webhookListCmd = &cli.Command{
		Name:   "list",
		Usage:  "list all webhooks, optionally filtered by target event",
		Flags:  eventFlags,
		Action: listWebhooksAction,
	}

	webhookAddCmd = &cli.Command{
		Name:  "add",
		Usage: "add a (secured) webhook endpoint called whenever a target event occurs",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "the webhook endpoint to be called whenever the target event occurs",
				Value: "",
			},
			&cli.StringFlag{
				Name: "secret",
				Usage: "the eventual secret to use to generate an OAuth token for " +
					"authenticating requests to the webhook endpoint",
				Value: "",
			},
		}, eventFlags...),
		Action: addWebhookAction,
	}

	webhookRemoveCmd = &cli.Command{
		Name:  "remove",
		Usage: "remove a webhook",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "the id of the webhook to remove",
				Value: "",
			},
		},
		Action: removeWebhookAction,
	}
)

func addWebhookAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	event, err := parseEvent(ctx)
	if err != nil {
		return err
	}
	if event.IsUnspecified() {
		return fmt.Errorf("missing event")
	}

	var reply httpinterface.AddWebhookResponse
	if err := client.post("/webhooks", httpinterface.AddWebhookRequest{
		Event:    string(event),
		Endpoint: ctx.String("endpoint"),
		Secret:   ctx.String("secret"),
	}, &reply); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("webhook id:", reply.ID)
	return nil
}

func removeWebhookAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	hookID := ctx.String("id")
	if hookID == "" {
		return fmt.Errorf("missing webhook id")
	}

	if err := client.delete("/webhooks/" + url.PathEscape(hookID)); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("removed webhook with id:", hookID)
	return nil
}

func listWebhooksAction(ctx *cli.Context) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}

	event, err := parseEvent(ctx)
	if err != nil {
		return err
	}

	query := url.Values{}
	if !event.IsUnspecified() {
		query.Set("event", string(event))
	}

	var reply httpinterface.ListWebhooksResponse
	if err := client.get("/webhooks", query, &reply); err != nil {
		return err
	}

	printRespJSON(reply)
	return nil
}

func parseEvent(ctx *cli.Context) (pubsub.WebhookEvent, error) {
	flags := map[string]pubsub.WebhookEvent{
		"trade_locked_event":    pubsub.EventTradeLocked,
		"trade_withdrawn_event": pubsub.EventTradeWithdrawn,
		"trade_refunded_event":  pubsub.EventTradeRefunded,
		"any_event":             pubsub.EventAny,
	}

	event := pubsub.EventUnspecified
	for flag, e := range flags {
		if !ctx.Bool(flag) {
			continue
		}
		if !event.IsUnspecified() {
			return "", fmt.Errorf("only one event flag can be set")
		}
		event = e
	}
	return event, nil
}
