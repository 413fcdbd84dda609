package wsapi

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeTimeout bounds every outbound frame write.
const writeTimeout = 10 * time.Second

// connSink adapts one websocket connection to the session egress
// contract. Writes are serialized: the controller emits from several
// goroutines and gorilla connections allow only one concurrent writer.
type connSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newConnSink(conn *websocket.Conn) *connSink {
	return &connSink{conn: conn}
}

// SendEvent writes one JSON event frame.
func (s *connSink) SendEvent(event any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(event)
}

// SendAudio writes one binary audio frame.
func (s *connSink) SendAudio(audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, audio)
}

// Close sends a close frame and drops the connection.
func (s *connSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	return s.conn.Close()
}
