package comms

import (
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"net/http"
	"time"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var ErrSlowClient = errors.New("client send buffer full")

type socketClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func (s *socketClient) Send(msg []byte) error {
	select {
	case s.send <- msg:
		return nil
	case <-s.done:
		return websocket.ErrCloseSent
	default:
		return ErrSlowClient
	}
}

func (s *socketClient) String() string {
	return "ws:" + s.conn.RemoteAddr().String()
}

func (s *socketClient) writer() {
	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).WithField("client", s.String()).Debug("write failed")
				s.conn.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// ControlHandler upgrades to a websocket that takes commands and receives
// replies, events and status frames.
func (c *Conductor) ControlHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("upgrade failed")
		return
	}
	defer conn.Close()

	client := &socketClient{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	defer close(client.done)
	go client.writer()

	c.Register(client)
	defer c.Unregister(client)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("read failed")
			}
			return
		}
		if err := client.Send(c.Handle(r.Context(), msg)); err != nil {
			log.WithError(err).WithField("client", client.String()).Warn("reply dropped")
		}
	}
}
