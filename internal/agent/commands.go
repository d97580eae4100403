package agent

import (
	"fmt"
	"net"
	"strings"

	"github.com/banshee-data/rcss.agent/internal/monitoring"
	"github.com/banshee-data/rcss.agent/internal/timing"
)

// Sender delivers one command datagram to the server.
type Sender interface {
	Send(payload []byte) error
}

// udpSender writes to the server address, which switches to the
// per-client port once the server has answered init.
type udpSender struct {
	socket UDPSocket
	addr   *net.UDPAddr
}

func (s *udpSender) Send(payload []byte) error {
	_, err := s.socket.WriteToUDP(payload, s.addr)
	return err
}

// discardSender drops commands; replayed sessions have no server to talk to.
type discardSender struct{}

func (discardSender) Send([]byte) error { return nil }

// CommandWriter serialises client commands. It implements timing.ViewSink.
type CommandWriter struct {
	sender Sender
	logf   func(format string, v ...interface{})
	sent   []string
	keep   int
}

// NewCommandWriter returns a writer sending through s. A nil s discards.
func NewCommandWriter(s Sender) *CommandWriter {
	if s == nil {
		s = discardSender{}
	}
	return &CommandWriter{sender: s, logf: monitoring.Tagged("agent"), keep: 32}
}

// Send writes cmd followed by the NUL terminator the server expects.
func (w *CommandWriter) Send(cmd string) error {
	if err := w.sender.Send(append([]byte(cmd), 0)); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	w.sent = append(w.sent, cmd)
	if len(w.sent) > w.keep {
		w.sent = w.sent[len(w.sent)-w.keep:]
	}
	return nil
}

// Recent returns the most recently sent commands, oldest first.
func (w *CommandWriter) Recent() []string {
	return append([]string(nil), w.sent...)
}

// Init requests a player slot for team.
func (w *CommandWriter) Init(team string, version int, goalie bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "(init %s (version %d)", team, version)
	if goalie {
		b.WriteString(" (goalie)")
	}
	b.WriteString(")")
	return w.Send(b.String())
}

// ChangeView requests a new view width and quality.
func (w *CommandWriter) ChangeView(mode timing.ViewMode) error {
	w.logf("change_view %s", mode)
	return w.Send(fmt.Sprintf("(change_view %s %s)", mode.Width, mode.Quality))
}

// SynchSee switches the server to synchronous visual reports.
func (w *CommandWriter) SynchSee() error { return w.Send("(synch_see)") }

// Done ends the agent's turn in synchronous mode.
func (w *CommandWriter) Done() error { return w.Send("(done)") }

// Bye leaves the match.
func (w *CommandWriter) Bye() error { return w.Send("(bye)") }

var _ timing.ViewSink = (*CommandWriter)(nil)
