package agent

import (
	"net"
	"time"
)

// UDPSocket is the subset of *net.UDPConn the client uses, so the receive
// loop can run against MockUDPSocket in tests.
type UDPSocket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	Close() error
	LocalAddr() net.Addr
}

// UDPSocketFactory creates sockets.
type UDPSocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error)
}

// RealUDPSocket wraps *net.UDPConn.
type RealUDPSocket struct {
	conn *net.UDPConn
}

// NewRealUDPSocket wraps an existing connection.
func NewRealUDPSocket(conn *net.UDPConn) *RealUDPSocket {
	return &RealUDPSocket{conn: conn}
}

func (r *RealUDPSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	return r.conn.ReadFromUDP(b)
}

func (r *RealUDPSocket) WriteToUDP(b []byte, addr *net.UDPAddr) (int, error) {
	return r.conn.WriteToUDP(b, addr)
}

func (r *RealUDPSocket) SetReadBuffer(bytes int) error     { return r.conn.SetReadBuffer(bytes) }
func (r *RealUDPSocket) SetReadDeadline(t time.Time) error { return r.conn.SetReadDeadline(t) }
func (r *RealUDPSocket) Close() error                      { return r.conn.Close() }
func (r *RealUDPSocket) LocalAddr() net.Addr               { return r.conn.LocalAddr() }

// RealUDPSocketFactory opens sockets with net.ListenUDP.
type RealUDPSocketFactory struct{}

func (RealUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return NewRealUDPSocket(conn), nil
}

// MockUDPPacket is one datagram read from or written to MockUDPSocket.
type MockUDPPacket struct {
	Data []byte
	Addr *net.UDPAddr
}

// MockUDPSocket replays Packets and records writes. Once Packets is
// exhausted every read times out.
type MockUDPSocket struct {
	Packets   []MockUDPPacket
	ReadIndex int
	Written   []MockUDPPacket

	Closed         bool
	ReadBufferSize int
	ReadDeadline   time.Time
	LocalAddress   *net.UDPAddr

	ReadError  error // returned once by the next read
	WriteError error

	// OnRead, when set, runs before every read.
	OnRead func(m *MockUDPSocket)
}

// NewMockUDPSocket returns a mock bound to 127.0.0.1:6000 holding packets.
func NewMockUDPSocket(packets []MockUDPPacket) *MockUDPSocket {
	return &MockUDPSocket{
		Packets:      packets,
		LocalAddress: &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 6000},
	}
}

func (m *MockUDPSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	if m.OnRead != nil {
		m.OnRead(m)
	}
	if m.Closed {
		return 0, nil, net.ErrClosed
	}
	if m.ReadError != nil {
		err := m.ReadError
		m.ReadError = nil
		return 0, nil, err
	}
	if m.ReadIndex >= len(m.Packets) {
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: timeoutError{}}
	}
	pkt := m.Packets[m.ReadIndex]
	m.ReadIndex++
	return copy(b, pkt.Data), pkt.Addr, nil
}

func (m *MockUDPSocket) WriteToUDP(b []byte, addr *net.UDPAddr) (int, error) {
	if m.Closed {
		return 0, net.ErrClosed
	}
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.Written = append(m.Written, MockUDPPacket{Data: append([]byte(nil), b...), Addr: addr})
	return len(b), nil
}

func (m *MockUDPSocket) SetReadBuffer(bytes int) error {
	m.ReadBufferSize = bytes
	return nil
}

func (m *MockUDPSocket) SetReadDeadline(t time.Time) error {
	m.ReadDeadline = t
	return nil
}

func (m *MockUDPSocket) Close() error {
	m.Closed = true
	return nil
}

func (m *MockUDPSocket) LocalAddr() net.Addr { return m.LocalAddress }

// MockUDPSocketFactory hands out Socket and records ListenUDP calls.
type MockUDPSocketFactory struct {
	Socket      *MockUDPSocket
	Error       error
	ListenCalls []string
}

func (f *MockUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	f.ListenCalls = append(f.ListenCalls, network)
	if f.Error != nil {
		return nil, f.Error
	}
	return f.Socket, nil
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
