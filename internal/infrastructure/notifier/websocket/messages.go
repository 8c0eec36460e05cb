package websocketnotifier

import (
	"encoding/json"
	"time"

	"github.com/agentcore/escrowd/internal/core/domain"
)

const (
	MessageTypeTradeStatusUpdate = "trade_status_update"
	MessageTypeHeartbeat         = "heartbeat"
	MessageTypeError             = "error"
	MessageTypePing              = "ping"
	MessageTypePong              = "pong"
)

// Message is the envelope of everything exchanged over a connection.
type Message struct {
	MessageType string      `json:"message_type"`
	Timestamp   int64       `json:"timestamp"`
	TradeID     string      `json:"trade_id,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}

type TradeStatusUpdate struct {
	TradeID   string `json:"trade_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	Arbiter   string `json:"arbiter"`
	Amount    uint64 `json:"amount"`
	Timelock  int64  `json:"timelock"`
	Method    string `json:"method,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

type ErrorData struct {
	Error string `json:"error"`
}

func newTradeStatusMessage(
	trade domain.Trade, oldStatus domain.TradeStatus,
) Message {
	update := TradeStatusUpdate{
		TradeID:   trade.ID.String(),
		OldStatus: oldStatus.String(),
		NewStatus: trade.Status.String(),
		Buyer:     trade.Buyer.Hex(),
		Seller:    trade.Seller.Hex(),
		Arbiter:   trade.Arbiter.Hex(),
		Amount:    trade.Amount,
		Timelock:  trade.Timelock,
	}
	if r := trade.Resolution; r != nil {
		update.Method = string(r.Method)
		update.Recipient = r.Recipient.Hex()
	}
	return Message{
		MessageType: MessageTypeTradeStatusUpdate,
		Timestamp:   time.Now().Unix(),
		TradeID:     update.TradeID,
		Data:        update,
	}
}

func newMessage(msgType string, data interface{}) Message {
	return Message{
		MessageType: msgType,
		Timestamp:   time.Now().Unix(),
		Data:        data,
	}
}

func (m Message) serialize() []byte {
	buf, _ := json.Marshal(m)
	return buf
}
