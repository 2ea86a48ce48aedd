package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal/protocol"
	"github.com/0xRadioAc7iv/go-kvs/internal/server"
)

func newStore(t *testing.T) *core.Store {
	t.Helper()

	s, err := core.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func handle(srv *server.Server, cmd, key, val string) protocol.Response {
	return srv.Handle(&protocol.Command{Cmd: cmd, Key: key, Val: val})
}

func TestHandleCommands(t *testing.T) {
	srv := server.New(newStore(t))

	assert.Equal(t, protocol.OK("PONG!"), handle(srv, "PING", "", ""))

	assert.Equal(t, protocol.NotFound(), handle(srv, "get", "a", ""))
	assert.Equal(t, protocol.OK("ok"), handle(srv, "set", "a", "1"))
	assert.Equal(t, protocol.OK("ok"), handle(srv, "set", "b", "2"))
	assert.Equal(t, protocol.OK("1"), handle(srv, "get", "a", ""))

	assert.Equal(t, protocol.OK("true"), handle(srv, "exists", "a", ""))
	assert.Equal(t, protocol.OK("2"), handle(srv, "count", "", ""))

	resp := handle(srv, "keys", "", "")
	require.Equal(t, protocol.StatusOK, resp.Status)
	keys, err := protocol.DecodeKeys(resp.Payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	assert.Equal(t, protocol.OK("ok"), handle(srv, "rm", "a", ""))
	assert.Equal(t, protocol.NotFound(), handle(srv, "rm", "a", ""))
	assert.Equal(t, protocol.OK("false"), handle(srv, "exists", "a", ""))

	assert.Equal(t, protocol.OK("ok"), handle(srv, "compact", "", ""))
	assert.Equal(t, protocol.OK("2"), handle(srv, "get", "b", ""))

	assert.Equal(t, protocol.StatusError, handle(srv, "frobnicate", "", "").Status)
}

func TestHandleClosedStore(t *testing.T) {
	st := newStore(t)
	srv := server.New(st)
	require.NoError(t, st.Close())

	resp := handle(srv, "set", "a", "1")
	assert.Equal(t, protocol.StatusError, resp.Status)
	assert.Equal(t, core.ErrClosed.Error(), resp.Payload)
}

func TestServeOverTCP(t *testing.T) {
	srv := server.New(newStore(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	roundTrip := func(cmd, key, val string) protocol.Response {
		payload, err := protocol.EncodeCommand(cmd, key, val)
		require.NoError(t, err)
		_, err = conn.Write(payload)
		require.NoError(t, err)

		resp, err := protocol.DecodeResponse(conn)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, protocol.OK("ok"), roundTrip("set", "greeting", "hello\nworld"))
	assert.Equal(t, protocol.OK("hello\nworld"), roundTrip("get", "greeting", ""))
	assert.Equal(t, protocol.NotFound(), roundTrip("get", "nope", ""))

	// cancelling closes the listener and the open connection
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_, err = protocol.DecodeResponse(conn)
	assert.Error(t, err)
	conn.Close()
}
