// Package replay feeds captured server traffic to an agent handler using
// capture timestamps, so timing decisions can be reproduced offline.
package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/rcss.agent/internal/monitoring"
	"github.com/banshee-data/rcss.agent/internal/timeutil"
)

// Handler consumes replayed datagrams. *agent.Client implements it.
type Handler interface {
	HandleMessage(raw []byte, at time.Time) error
	HandleTimeout(at time.Time)
}

// Options controls a replay.
type Options struct {
	// Port keeps only datagrams whose UDP source port matches; 0 keeps all.
	Port int
	// Clock, when set, is moved to each event's timestamp before delivery.
	Clock *timeutil.MockClock
	// Timeout synthesises receive timeouts in gaps between datagrams, as
	// the live receive loop would see them; 0 disables.
	Timeout time.Duration
}

// Stats summarises a replay.
type Stats struct {
	Packets   int // capture records read
	Delivered int
	Skipped   int // not UDP, wrong port or empty
	Errors    int // handler errors
	Timeouts  int
	First     time.Time
	Last      time.Time
}

type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// ReadPCAPFile replays the capture at path.
func ReadPCAPFile(ctx context.Context, path string, opts Options, h Handler) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	defer f.Close()
	return ReadPCAP(ctx, f, opts, h)
}

// ReadPCAP replays a pcap or pcapng stream.
func ReadPCAP(ctx context.Context, r io.Reader, opts Options, h Handler) (Stats, error) {
	logf := monitoring.Tagged("replay")
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read capture header: %w", err)
	}

	var src packetReader
	if string(magic) == string(ngMagic) {
		src, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		src, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open capture: %w", err)
	}

	var st Stats
	var prev time.Time
	for {
		select {
		case <-ctx.Done():
			logf("stopping after %d packets: %v", st.Packets, ctx.Err())
			return st, ctx.Err()
		default:
		}

		data, ci, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			logf("capture complete: %d packets, %d delivered, %d timeouts", st.Packets, st.Delivered, st.Timeouts)
			return st, nil
		}
		if err != nil {
			return st, fmt.Errorf("failed to read packet %d: %w", st.Packets+1, err)
		}
		st.Packets++

		payload, ok := udpPayload(data, src.LinkType(), opts.Port)
		if !ok {
			st.Skipped++
			continue
		}

		at := ci.Timestamp.UTC()
		if !prev.IsZero() && opts.Timeout > 0 {
			for tick := prev.Add(opts.Timeout); tick.Before(at); tick = tick.Add(opts.Timeout) {
				if opts.Clock != nil {
					opts.Clock.Set(tick)
				}
				h.HandleTimeout(tick)
				st.Timeouts++
			}
		}
		if opts.Clock != nil {
			opts.Clock.Set(at)
		}
		if st.First.IsZero() {
			st.First = at
		}
		st.Last = at
		prev = at

		if err := h.HandleMessage(payload, at); err != nil {
			st.Errors++
			logf("packet %d at %s: %v", st.Packets, at.Format(time.RFC3339Nano), err)
			continue
		}
		st.Delivered++
	}
}

// udpPayload decodes a captured frame and returns its UDP payload when the
// source port matches.
func udpPayload(data []byte, link layers.LinkType, port int) ([]byte, bool) {
	packet := gopacket.NewPacket(data, link, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil, false
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok || len(udp.Payload) == 0 {
		return nil, false
	}
	if port != 0 && int(udp.SrcPort) != port {
		return nil, false
	}
	return udp.Payload, true
}
