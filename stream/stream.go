/*package stream serves run snapshots to websocket clients.

A Server is both an http.Handler which upgrades incoming requests to
websocket connections and an observer which broadcasts every snapshot it
receives as a JSON text message. Slow clients drop snapshots rather than
stalling the run.
*/
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/phil-mansfield/goib/io"
)

const (
	// Buffer is the number of snapshots queued for a client before new ones
	// are dropped.
	Buffer    = 8
	writeWait = 10 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server broadcasts snapshots to every connected websocket client.
type Server struct {
	Log bool

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1 << 16,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: map[*client]struct{}{},
	}
}

// ServeHTTP upgrades the request to a websocket connection and registers
// it as a client.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok && s.Log {
			log.Println(err)
		}
		return
	}

	c := &client{conn: conn, send: make(chan []byte, Buffer)}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	if s.Log {
		log.Printf("Stream client %s connected.", r.RemoteAddr)
	}
	go s.write(c)
	go s.read(c)
}

// read discards incoming messages until the connection closes.
func (s *Server) read(c *client) {
	defer s.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			) && s.Log {
				log.Printf("Stream error: %v", err)
			}
			return
		}
	}
}

func (s *Server) write(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.remove(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// remove unregisters c and stops its writer. It is safe to call more than
// once.
func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// Observe sends snap to every connected client.
func (s *Server) Observe(snap *io.Snapshot) error {
	msg, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			if s.Log {
				log.Printf("Dropped step %d for a slow stream client.",
					snap.Step)
			}
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client and refuses new ones.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}
