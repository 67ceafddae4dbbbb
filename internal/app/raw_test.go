package app

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/protocol"
	"github.com/stretchr/testify/require"
)

// dialRaw connects without a peer and consumes the session snapshot.
func dialRaw(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var msg protocol.Input
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, protocol.TypeSessionJoined, msg.Type)

	return conn
}
