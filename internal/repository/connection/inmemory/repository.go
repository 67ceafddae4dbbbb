package inmemory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/repository/connection"
)

const writeTimeout = 5 * time.Second

type entry struct {
	member    connection.Member
	writeMu   sync.Mutex
	ready     chan struct{}
	readyOnce sync.Once
}

func newEntry(member connection.Member) *entry {
	return &entry{member: member, ready: make(chan struct{})}
}

func (e *entry) markReady() {
	e.readyOnce.Do(func() { close(e.ready) })
}

type repo struct {
	connList map[*websocket.Conn]*entry
	idList   map[connection.Member]*websocket.Conn
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		connList: make(map[*websocket.Conn]*entry),
		idList:   make(map[connection.Member]*websocket.Conn),
		logger:   logger,
	}
}

func (r *repo) Add(conn *websocket.Conn, member connection.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connList[conn]; ok || r.idList[member] != nil {
		r.logger.Info("connection not added", "session", member.Session, "peer_id", member.PeerId, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = newEntry(member)
	r.idList[member] = conn

	return nil
}

func (r *repo) RemoveByConn(conn *websocket.Conn) (connection.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.connList[conn]
	if !ok {
		return connection.Member{}, connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, e.member)
	e.markReady()

	return e.member, nil
}

func (r *repo) GetMember(conn *websocket.Conn) (connection.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.connList[conn]
	if !ok {
		return connection.Member{}, connection.ErrNotFound
	}

	return e.member, nil
}

func (r *repo) GetConn(member connection.Member) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[member]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) IsConnected(member connection.Member) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.idList[member]
	return ok
}

func (r *repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connList)
}

func (r *repo) getEntry(conn *websocket.Conn) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.connList[conn]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return e, nil
}

func (e *entry) write(conn *websocket.Conn, v any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return conn.WriteJSON(v)
}

// Ready writes the first message of a connection. Writes to a connection
// added with Add wait until Ready has been called or the connection is
// removed.
func (r *repo) Ready(conn *websocket.Conn, first any) error {
	e, err := r.getEntry(conn)
	if err != nil {
		return err
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	defer e.markReady()

	return e.write(conn, first)
}

// Write sends v as JSON. Writes to the same connection are serialized.
func (r *repo) Write(conn *websocket.Conn, v any) error {
	e, err := r.getEntry(conn)
	if err != nil {
		return err
	}

	select {
	case <-e.ready:
	case <-time.After(writeTimeout):
		return connection.ErrNotReady
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	return e.write(conn, v)
}
