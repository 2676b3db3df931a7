package services

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// PriceHub difunde cada lote de precios nuevos a los clientes websocket
// conectados. El colector publica; los clientes solo escuchan.
type PriceHub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	lock      sync.Mutex
}

func NewPriceHub() *PriceHub {
	return &PriceHub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 16),
	}
}

// Run consume el canal de difusión y escribe a cada cliente,
// descartando las conexiones que fallan
func (h *PriceHub) Run() {
	for message := range h.broadcast {
		h.lock.Lock()
		for client := range h.clients {
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				client.Close()
				delete(h.clients, client)
			}
		}
		h.lock.Unlock()
	}
}

// Broadcast encola un mensaje para todos los clientes conectados
func (h *PriceHub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		// Si nadie consume a tiempo se descarta: los precios
		// siguientes llegan enseguida
	}
}

// HandleWS acepta una conexión websocket nueva
func (h *PriceHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error al aceptar websocket: %v", err)
		return
	}

	h.lock.Lock()
	h.clients[conn] = true
	h.lock.Unlock()
}

// ClientCount devuelve la cantidad de clientes conectados
func (h *PriceHub) ClientCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}
