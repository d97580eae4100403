package agent

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rcss.agent/internal/timing"
)

type recordingSender struct {
	payloads []string
	err      error
}

func (s *recordingSender) Send(p []byte) error {
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, string(p))
	return nil
}

func TestCommandWriter(t *testing.T) {
	s := &recordingSender{}
	w := NewCommandWriter(s)

	require.NoError(t, w.Init("banshee", 18, false))
	require.NoError(t, w.Init("banshee", 18, true))
	require.NoError(t, w.ChangeView(timing.AcquireView))
	require.NoError(t, w.SynchSee())
	require.NoError(t, w.Done())
	require.NoError(t, w.Bye())

	assert.Equal(t, []string{
		"(init banshee (version 18))\x00",
		"(init banshee (version 18) (goalie))\x00",
		"(change_view narrow low)\x00",
		"(synch_see)\x00",
		"(done)\x00",
		"(bye)\x00",
	}, s.payloads)
	assert.Equal(t, "(bye)", w.Recent()[5])
}

func TestCommandWriter_Errors(t *testing.T) {
	boom := errors.New("boom")
	w := NewCommandWriter(&recordingSender{err: boom})
	err := w.Done()
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "(done)")
	assert.Empty(t, w.Recent())
}

func TestCommandWriter_RecentIsBounded(t *testing.T) {
	w := NewCommandWriter(nil)
	for range 40 {
		require.NoError(t, w.Done())
	}
	assert.Len(t, w.Recent(), 32)
}

func TestUDPSender(t *testing.T) {
	sock := NewMockUDPSocket(nil)
	addr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 6000}
	w := NewCommandWriter(&udpSender{socket: sock, addr: addr})

	require.NoError(t, w.SynchSee())
	require.Len(t, sock.Written, 1)
	assert.Equal(t, "(synch_see)\x00", string(sock.Written[0].Data))
	assert.Equal(t, addr, sock.Written[0].Addr)

	sock.Close()
	assert.ErrorIs(t, w.Done(), net.ErrClosed)
}
