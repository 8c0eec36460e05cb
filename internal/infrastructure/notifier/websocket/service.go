package websocketnotifier

import (
	"net/http"
	"sync"
	"time"

	"github.com/agentcore/escrowd/internal/core/domain"
	"github.com/agentcore/escrowd/internal/core/ports"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	tradeIDQueryParam        = "trade_id"
)

// Notifier pushes trade status updates to websocket clients. It is also the
// http.Handler that upgrades incoming connections.
type Notifier interface {
	ports.Notifier
	http.Handler
	Start()
	Stop()
	NumClients() int
}

type NotifierOpts struct {
	HeartbeatInterval time.Duration
	// OnClientsChange, if defined, is called with the number of connected
	// clients every time a client connects or disconnects.
	OnClientsChange func(n int)
}

type service struct {
	upgrader          websocket.Upgrader
	heartbeatInterval time.Duration
	onClientsChange   func(int)

	lock    *sync.RWMutex
	clients map[string]*client

	startOnce *sync.Once
	stopOnce  *sync.Once
	quitChan  chan struct{}
}

func NewNotifier(opts NotifierOpts) Notifier {
	interval := opts.HeartbeatInterval
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	onClientsChange := opts.OnClientsChange
	if onClientsChange == nil {
		onClientsChange = func(int) {}
	}

	return &service{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		heartbeatInterval: interval,
		onClientsChange:   onClientsChange,
		lock:              &sync.RWMutex{},
		clients:           make(map[string]*client),
		startOnce:         &sync.Once{},
		stopOnce:          &sync.Once{},
		quitChan:          make(chan struct{}),
	}
}

// Start runs the heartbeat loop in background.
func (s *service) Start() {
	s.startOnce.Do(func() {
		go s.heartbeatLoop()
	})
}

// Stop terminates the heartbeat loop and disconnects every client.
func (s *service) Stop() {
	s.stopOnce.Do(func() {
		close(s.quitChan)

		s.lock.Lock()
		clients := s.clients
		s.clients = make(map[string]*client)
		s.lock.Unlock()

		for _, c := range clients {
			c.close()
		}
		s.onClientsChange(0)
	})
}

func (s *service) NumClients() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.clients)
}

func (s *service) NotifyTradeStatus(
	trade domain.Trade, oldStatus domain.TradeStatus,
) {
	msg := newTradeStatusMessage(trade, oldStatus)
	s.broadcast(msg.TradeID, msg.serialize())
}

func (s *service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var tradeID string
	if v := r.URL.Query().Get(tradeIDQueryParam); v != "" {
		id, err := domain.ParseTradeID(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tradeID = id.String()
	}

	select {
	case <-s.quitChan:
		http.Error(w, "notifier stopped", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("ws: failed to upgrade connection")
		return
	}

	c := newClient(uuid.New().String(), tradeID, conn)
	s.addClient(c)
	log.Debugf("ws client %s connected", c.id)

	go c.writeLoop()
	go c.readLoop(func() {
		s.removeClient(c.id)
		log.Debugf("ws client %s disconnected", c.id)
	})
}

func (s *service) heartbeatLoop() {
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quitChan:
			return
		case <-ticker.C:
			msg := newMessage(MessageTypeHeartbeat, nil)
			s.broadcast("", msg.serialize())
		}
	}
}

func (s *service) broadcast(tradeID string, msg []byte) {
	s.lock.RLock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		if c.accepts(tradeID) {
			clients = append(clients, c)
		}
	}
	s.lock.RUnlock()

	for _, c := range clients {
		if !c.enqueue(msg) {
			log.Warnf("ws client %s is too slow, disconnecting", c.id)
			c.close()
		}
	}
}

func (s *service) addClient(c *client) {
	s.lock.Lock()
	s.clients[c.id] = c
	n := len(s.clients)
	s.lock.Unlock()

	s.onClientsChange(n)
}

func (s *service) removeClient(id string) {
	s.lock.Lock()
	_, ok := s.clients[id]
	delete(s.clients, id)
	n := len(s.clients)
	s.lock.Unlock()

	if ok {
		s.onClientsChange(n)
	}
}
