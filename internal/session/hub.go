package session

// message is a payload addressed to one session room, or to everyone when
// Room is empty.
type message struct {
	Room string
	Data []byte
}

// Hub owns the websocket clients and fans messages out to them. Clients
// are grouped into rooms keyed by session id; events from the editor side
// carry no room and reach every connection.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan message
	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Send queues data for every client in room (or all clients when room is
// empty). Never blocks the caller longer than the hub loop takes.
func (h *Hub) Send(room string, data []byte) {
	h.broadcast <- message{Room: room, Data: data}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				if msg.Room != "" && client.room != msg.Room {
					continue
				}
				select {
				case client.send <- msg.Data:
				default:
					// Slow consumer; drop it rather than stall the room.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}
