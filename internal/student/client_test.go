package student

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classlink/internal/codec"
	clerr "classlink/internal/errors"
	"classlink/internal/transport"
)

// fakeServer plays the instructor's side of the handshake on conn and
// reports whether the echoed challenge matched.
func fakeServer(conn net.Conn, known string, challenge string) <-chan bool {
	ok := make(chan bool, 1)
	go func() {
		defer close(ok)
		r := codec.NewFrameReader(conn, 0)
		w := codec.NewFrameWriter(conn)

		id, err := r.ReadFrame()
		if err != nil || id != known {
			conn.Close()
			ok <- false
			return
		}
		km := codec.DeriveKey(id)
		frame, _ := codec.Encrypt(challenge, km)
		if _, err := w.WriteFrame(frame); err != nil {
			ok <- false
			return
		}
		resp, err := r.ReadFrame()
		if err != nil {
			ok <- false
			return
		}
		got, err := codec.Decrypt(resp, km)
		ok <- err == nil && got == challenge
	}()
	return ok
}

func TestClient_Authenticate(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	result := fakeServer(server, "816117992", "1234")

	c := New(client, Options{Identifier: "816117992", HandshakeTimeout: time.Second})
	defer c.Close()

	require.NoError(t, c.Authenticate())
	assert.True(t, <-result)
	assert.Equal(t, "816117992", c.Identifier())
}

func TestClient_UnknownIdentifier(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	fakeServer(server, "816117992", "1234")

	c := New(client, Options{Identifier: "nobody", HandshakeTimeout: time.Second})
	defer c.Close()

	err := c.Authenticate()
	require.Error(t, err)
	assert.ErrorIs(t, err, clerr.ErrAuthFailed)
	assert.ErrorIs(t, err, io.EOF)

	var ae *clerr.AuthError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "challenge", ae.Stage)
	assert.Equal(t, "nobody", ae.Identifier)
}

func TestClient_SendReceive(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	km := codec.DeriveKey("A")
	c := New(client, Options{Identifier: "A"})
	defer c.Close()

	r := codec.NewFrameReader(server, 0)
	w := codec.NewFrameWriter(server)

	go func() {
		assert.NoError(t, c.Send("question about homework"))
	}()
	frame, err := r.ReadFrame()
	require.NoError(t, err)
	text, err := codec.Decrypt(frame, km)
	require.NoError(t, err)
	assert.Equal(t, "question about homework", text)

	reply, err := codec.Encrypt("see page 12", km)
	require.NoError(t, err)
	go w.WriteFrame(reply) //nolint:errcheck
	got, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, "see page 12", got)
}

func TestClient_ReceiveEOF(t *testing.T) {
	server, client := net.Pipe()
	c := New(client, Options{Identifier: "A"})
	defer c.Close()

	server.Close()
	_, err := c.Receive()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClient_CloseIdempotent(t *testing.T) {
	_, client := net.Pipe()
	c := New(client, Options{Identifier: "A"})

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestJoin_DialError(t *testing.T) {
	boom := errors.New("no route")
	d := transport.DialerFunc(func(context.Context, string) (net.Conn, error) { return nil, boom })

	c, err := Join(context.Background(), d, "10.0.0.1:8888", Options{Identifier: "A"})
	assert.Nil(t, c)
	assert.ErrorIs(t, err, boom)
}

func TestJoin_OverPipe(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	result := fakeServer(server, "A", "9999")
	d := transport.DialerFunc(func(context.Context, string) (net.Conn, error) { return client, nil })

	c, err := Join(context.Background(), d, "pipe", Options{Identifier: "A", HandshakeTimeout: time.Second})
	require.NoError(t, err)
	defer c.Close()
	assert.True(t, <-result)
}
