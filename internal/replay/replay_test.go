package replay

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/rcss.agent/internal/agent"
	"github.com/banshee-data/rcss.agent/internal/config"
	"github.com/banshee-data/rcss.agent/internal/gametime"
	"github.com/banshee-data/rcss.agent/internal/monitoring"
	"github.com/banshee-data/rcss.agent/internal/timeutil"
)

var t0 = time.Date(2026, 5, 6, 12, 0, 0, 0, time.UTC)

type datagram struct {
	offset  time.Duration
	srcPort int
	payload string
}

// buildCapture writes an Ethernet/IPv4/UDP pcap holding the datagrams.
func buildCapture(t *testing.T, grams []datagram) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	for _, g := range grams {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
			DstMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 6},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(127, 0, 0, 1),
			DstIP:    net.IPv4(127, 0, 0, 1),
		}
		udp := &layers.UDP{SrcPort: layers.UDPPort(g.srcPort), DstPort: 40000}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

		sb := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		require.NoError(t, gopacket.SerializeLayers(sb, opts, eth, ip, udp, gopacket.Payload([]byte(g.payload))))

		data := sb.Bytes()
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     t0.Add(g.offset),
			CaptureLength: len(data),
			Length:        len(data),
		}, data))
	}
	return buf.Bytes()
}

type event struct {
	msg     string
	at      time.Time
	timeout bool
}

type recordingHandler struct {
	events []event
	clock  *timeutil.MockClock
	seen   []time.Time
	fail   string
}

func (h *recordingHandler) HandleMessage(raw []byte, at time.Time) error {
	if h.clock != nil {
		h.seen = append(h.seen, h.clock.Now())
	}
	if string(raw) == h.fail {
		return errors.New("rejected")
	}
	h.events = append(h.events, event{msg: string(raw), at: at})
	return nil
}

func (h *recordingHandler) HandleTimeout(at time.Time) {
	h.events = append(h.events, event{at: at, timeout: true})
}

func muteLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

func TestReadPCAP_FiltersAndStamps(t *testing.T) {
	muteLogs(t)
	capture := buildCapture(t, []datagram{
		{0, 6001, "(sense_body 1)"},
		{5 * time.Millisecond, 40000, "(dash 100)"},
		{30 * time.Millisecond, 6001, "(see 1)"},
		{100 * time.Millisecond, 6001, "(sense_body 2)"},
	})

	clock := timeutil.NewMockClock(time.Time{})
	h := &recordingHandler{clock: clock}
	st, err := ReadPCAP(context.Background(), bytes.NewReader(capture), Options{Port: 6001, Clock: clock}, h)
	require.NoError(t, err)

	assert.Equal(t, Stats{
		Packets: 4, Delivered: 3, Skipped: 1,
		First: t0, Last: t0.Add(100 * time.Millisecond),
	}, st)
	require.Len(t, h.events, 3)
	assert.Equal(t, "(see 1)", h.events[1].msg)
	assert.Equal(t, t0.Add(30*time.Millisecond), h.events[1].at)
	assert.Equal(t, []time.Time{t0, t0.Add(30 * time.Millisecond), t0.Add(100 * time.Millisecond)}, h.seen)
}

func TestReadPCAP_SynthesisesTimeouts(t *testing.T) {
	muteLogs(t)
	capture := buildCapture(t, []datagram{
		{0, 6001, "(sense_body 1)"},
		{250 * time.Millisecond, 6001, "(sense_body 2)"},
	})

	h := &recordingHandler{}
	st, err := ReadPCAP(context.Background(), bytes.NewReader(capture), Options{Timeout: 100 * time.Millisecond}, h)
	require.NoError(t, err)

	assert.Equal(t, 2, st.Timeouts)
	require.Len(t, h.events, 4)
	assert.True(t, h.events[1].timeout)
	assert.Equal(t, t0.Add(100*time.Millisecond), h.events[1].at)
	assert.Equal(t, t0.Add(200*time.Millisecond), h.events[2].at)
	assert.False(t, h.events[3].timeout)
}

func TestReadPCAP_TimeoutMatchesLiveLoop(t *testing.T) {
	muteLogs(t)
	// The server answers init from 6000 and then talks from a per-player
	// port; with no port filter both reach the handler.
	capture := buildCapture(t, []datagram{
		{0, 6000, "(init l 7 play_on)"},
		{10 * time.Millisecond, 6042, "(sense_body 1)"},
		{460 * time.Millisecond, 6042, "(sense_body 2)"},
	})

	agentCfg := config.EmptyAgentConfig()
	slow := 2.0
	agentCfg.SlowDownFactor = &slow
	cfg := agent.ConfigFromAgentConfig(agentCfg)
	require.Equal(t, 200*time.Millisecond, cfg.ReceiveTimeout())

	h := &recordingHandler{}
	st, err := ReadPCAP(context.Background(), bytes.NewReader(capture), Options{Timeout: cfg.ReceiveTimeout()}, h)
	require.NoError(t, err)

	assert.Equal(t, 3, st.Delivered)
	assert.Equal(t, 0, st.Skipped)
	assert.Equal(t, 2, st.Timeouts)
	assert.Equal(t, t0.Add(210*time.Millisecond), h.events[2].at)
	assert.Equal(t, t0.Add(410*time.Millisecond), h.events[3].at)
}

func TestReadPCAP_HandlerErrorsAreCounted(t *testing.T) {
	muteLogs(t)
	capture := buildCapture(t, []datagram{
		{0, 6001, "(bad"},
		{time.Millisecond, 6001, "(sense_body 1)"},
	})
	h := &recordingHandler{fail: "(bad"}
	st, err := ReadPCAP(context.Background(), bytes.NewReader(capture), Options{}, h)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Errors)
	assert.Equal(t, 1, st.Delivered)
}

func TestReadPCAP_Errors(t *testing.T) {
	muteLogs(t)
	_, err := ReadPCAP(context.Background(), bytes.NewReader(nil), Options{}, &recordingHandler{})
	assert.Error(t, err)

	_, err = ReadPCAP(context.Background(), bytes.NewReader([]byte("not a capture")), Options{}, &recordingHandler{})
	assert.Error(t, err)

	_, err = ReadPCAPFile(context.Background(), filepath.Join(t.TempDir(), "missing.pcap"), Options{}, &recordingHandler{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	capture := buildCapture(t, []datagram{{0, 6001, "(sense_body 1)"}})
	_, err = ReadPCAP(ctx, bytes.NewReader(capture), Options{}, &recordingHandler{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadPCAPFile_DrivesClient(t *testing.T) {
	muteLogs(t)
	capture := buildCapture(t, []datagram{
		{0, 6001, "(init l 7 play_on)"},
		{0, 6001, "(sense_body 1 (view_mode high normal))"},
		{40 * time.Millisecond, 6001, "(see 1)"},
		{100 * time.Millisecond, 6001, "(sense_body 2 (view_mode high normal))"},
		// No visual for cycle 2; the synthesised timeout forces the decision.
		{300 * time.Millisecond, 6001, "(sense_body 4 (view_mode high normal))"},
	})
	path := filepath.Join(t.TempDir(), "session.pcap")
	require.NoError(t, os.WriteFile(path, capture, 0o644))

	clock := timeutil.NewMockClock(t0)
	cfg := agent.ConfigFromAgentConfig(config.EmptyAgentConfig())
	client := agent.NewClient(cfg, agent.Options{Clock: clock})

	st, err := ReadPCAPFile(context.Background(), path, Options{Port: 6001, Clock: clock, Timeout: cfg.ReceiveTimeout()}, client)
	require.NoError(t, err)
	assert.Equal(t, 5, st.Delivered)

	last, ok := client.Synchronizer().LastDecision()
	require.True(t, ok)
	assert.Equal(t, gametime.New(2, 0), last)

	counts := client.Synchronizer().Anomalies()
	assert.Equal(t, 1, counts[monitoring.AnomalyDrift])
	assert.Equal(t, 1, counts[monitoring.AnomalyCycleSkip])
	assert.Equal(t, 1, counts[monitoring.AnomalyMissedDecision])
}
