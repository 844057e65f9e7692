// Package websocket раздаёт события торгового движка подписчикам:
// алерты, смены состояния, открытия и закрытия позиций, риск-метрики.
package websocket

import (
	"bytes"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"tradebot/internal/engine"
	"tradebot/internal/models"
	"tradebot/internal/monitoring"
)

var _ monitoring.AlertSink = (*Hub)(nil)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Пул JSON буферов: убирает аллокации на каждый Broadcast
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями.
//
// Реализует monitoring.AlertSink, поэтому монитор пишет сюда алерты
// как в обычный канал доставки. Медленные клиенты отключаются,
// переполнение broadcast-канала роняет сообщение, а не горутину.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	dropped atomic.Uint64

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub создает новый Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "websocket").Logger(),
	}
}

// Run запускает главный цикл Hub. Запускается в отдельной горутине,
// завершается по Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("total", total).Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("total", total).Msg("client disconnected")

		case message := <-h.broadcast:
			// Копируем список под коротким RLock, шлём без блокировки
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает читать
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.logger.Warn().Int("removed", len(toRemove)).Int("total", total).Msg("slow clients dropped")
			}
		}
	}
}

// Stop завершает цикл Run и закрывает все соединения
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast сериализует сообщение и отправляет его всем клиентам.
// При переполнении канала сообщение отбрасывается.
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.logger.Error().Err(err).Msg("broadcast message marshal failed")
		jsonBufferPool.Put(buf)
		return
	}

	// Encode добавляет завершающий перевод строки
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.BroadcastRaw(msgCopy)
}

// BroadcastRaw отправляет уже сериализованное сообщение
func (h *Hub) BroadcastRaw(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
	}
}

// Send доставляет алерт подписчикам. Канал доставки для мониторинга.
func (h *Hub) Send(alert models.Alert) error {
	h.Broadcast(NewAlertMessage(alert))
	return nil
}

// BroadcastEngineStatus отправляет состояние движка
func (h *Hub) BroadcastEngineStatus(status engine.Status) {
	h.Broadcast(NewEngineStatusMessage(status))
}

// BroadcastTradeClosed отправляет закрытую сделку
func (h *Hub) BroadcastTradeClosed(trade models.TradeRecord) {
	h.Broadcast(NewTradeClosedMessage(trade))
}

// BroadcastPositionOpened отправляет открытую позицию
func (h *Hub) BroadcastPositionOpened(pos models.Position) {
	h.Broadcast(NewPositionOpenedMessage(pos))
}

// BroadcastRiskMetrics отправляет снимок риск-метрик
func (h *Hub) BroadcastRiskMetrics(metrics models.RiskMetrics) {
	h.Broadcast(NewRiskMetricsMessage(metrics))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedMessages возвращает число сообщений, отброшенных из-за
// переполнения broadcast-канала
func (h *Hub) DroppedMessages() uint64 {
	return h.dropped.Load()
}
