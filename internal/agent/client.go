package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/rcss.agent/internal/config"
	"github.com/banshee-data/rcss.agent/internal/gametime"
	"github.com/banshee-data/rcss.agent/internal/monitoring"
	"github.com/banshee-data/rcss.agent/internal/perception"
	"github.com/banshee-data/rcss.agent/internal/timeutil"
	"github.com/banshee-data/rcss.agent/internal/timing"
)

var (
	// ErrNotConnected is returned by Run before Connect.
	ErrNotConnected = errors.New("agent: not connected")
	// ErrServerSilent is returned by Run when nothing has arrived for
	// Config.ServerWait.
	ErrServerSilent = errors.New("agent: server silent")
	// ErrInitRejected is returned when the server refuses the player.
	ErrInitRejected = errors.New("agent: init rejected")
)

// Config is the client's explicit context.
type Config struct {
	Timing        timing.Params
	Tracker       perception.TrackerConfig
	ServerAddress string
	TeamName      string
	ClientVersion int
	Goalie        bool
	SynchSee      bool
	RecvBuffer    int
	ServerWait    time.Duration
	MaxPower      float64 // server max_power, used to derive player type speeds
}

// ConfigFromAgentConfig builds a Config from a loaded AgentConfig.
func ConfigFromAgentConfig(cfg *config.AgentConfig) Config {
	return Config{
		Timing:        timing.ParamsFromConfig(cfg),
		Tracker:       perception.TrackerConfigFromConfig(cfg),
		ServerAddress: cfg.GetServerAddress(),
		TeamName:      cfg.GetTeamName(),
		ClientVersion: cfg.GetClientVersion(),
		RecvBuffer:    cfg.GetRecvBuffer(),
		ServerWait:    10 * time.Second,
		MaxPower:      cfg.GetMaxPower(),
	}
}

// VisualParser turns a see message into the agent's localized pose and
// the cycle's sighting pools.
type VisualParser interface {
	ParseVisual(t gametime.Time, body string) (perception.SelfState, *perception.Pools, error)
}

// HeardPlayer is one player position decoded from a teammate's say message.
type HeardPlayer struct {
	Side perception.Side
	Unum int
	Pos  r2.Vec
}

// AudioParser decodes the player positions carried by a non-referee hear
// message. Referee messages never reach it.
type AudioParser interface {
	ParseAudio(t gametime.Time, body string) ([]HeardPlayer, error)
}

// Brain chooses and sends the agent's actions for one decision.
type Brain interface {
	Decide(t gametime.Time, wm *perception.WorldModel, cmd *CommandWriter) error
}

// IdleBrain sends nothing.
type IdleBrain struct{}

func (IdleBrain) Decide(gametime.Time, *perception.WorldModel, *CommandWriter) error { return nil }

// Decision describes one wake-up of the act/no-act check.
type Decision struct {
	Time         gametime.Time
	At           time.Time
	ElapsedMS    int64
	TimeoutCount int
	Acted        bool
	View         timing.ViewMode
	PartialSync  bool
	FullSync     bool
}

// Observer receives the client's timing and tracking events.
type Observer interface {
	Decision(d Decision)
	Anomaly(kind monitoring.Anomaly, at gametime.Time, detail string)
	Tracking(at gametime.Time, rep perception.Report)
}

type nopObserver struct{}

func (nopObserver) Decision(Decision)                                 {}
func (nopObserver) Anomaly(monitoring.Anomaly, gametime.Time, string) {}
func (nopObserver) Tracking(gametime.Time, perception.Report)         {}

// Options injects the client's collaborators. Zero fields get defaults.
type Options struct {
	Clock    timeutil.Clock
	Visual   VisualParser
	Audio    AudioParser
	Brain    Brain
	Observer Observer
}

// Client is one player connection. HandleMessage and HandleTimeout may be
// driven by Run or directly by a replay.
type Client struct {
	cfg      Config
	clock    timeutil.Clock
	visual   VisualParser
	audio    AudioParser
	brain    Brain
	observer Observer
	logf     func(format string, v ...interface{})

	socket UDPSocket
	sender *udpSender
	cmd    *CommandWriter

	see     *timing.SeeState
	sync    *timing.Synchronizer
	tracker *perception.Tracker
	world   *perception.WorldModel

	init     InitReply
	playMode string

	lastSelfReportAt time.Time
	lastMessageAt    time.Time
	timeoutCount     int
}

// NewClient builds a client with no connection; commands are discarded
// until Connect.
func NewClient(cfg Config, opts Options) *Client {
	c := &Client{
		cfg:      cfg,
		clock:    opts.Clock,
		visual:   opts.Visual,
		audio:    opts.Audio,
		brain:    opts.Brain,
		observer: opts.Observer,
		logf:     monitoring.Tagged("agent"),
		cmd:      NewCommandWriter(nil),
		playMode: "before_kick_off",
	}
	if c.clock == nil {
		c.clock = timeutil.RealClock{}
	}
	if c.brain == nil {
		c.brain = IdleBrain{}
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.cfg.RecvBuffer <= 0 {
		c.cfg.RecvBuffer = 8192
	}

	c.see = timing.NewSeeState(cfg.Timing)
	c.sync = timing.NewSynchronizer(cfg.Timing, c.see, c.cmd)
	c.sync.SetAnomalyHook(c.observer.Anomaly)
	c.tracker = perception.NewTracker(cfg.Tracker)
	c.world = perception.NewWorldModel(c.tracker)
	return c
}

// Synchronizer exposes the decision-timing state.
func (c *Client) Synchronizer() *timing.Synchronizer { return c.sync }

// SeeState exposes the visual synchronization state.
func (c *Client) SeeState() *timing.SeeState { return c.see }

// World exposes the tracked players.
func (c *Client) World() *perception.WorldModel { return c.world }

// Commands exposes the command writer.
func (c *Client) Commands() *CommandWriter { return c.cmd }

// PlayMode returns the last announced play mode.
func (c *Client) PlayMode() string { return c.playMode }

// TimeoutCount returns the consecutive receive timeouts since the last
// message.
func (c *Client) TimeoutCount() int { return c.timeoutCount }

// Connect opens a socket through factory, points commands at the server
// and requests a player slot.
func (c *Client) Connect(factory UDPSocketFactory) error {
	addr, err := net.ResolveUDPAddr("udp", c.cfg.ServerAddress)
	if err != nil {
		return fmt.Errorf("failed to resolve server address: %w", err)
	}
	sock, err := factory.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return fmt.Errorf("failed to open UDP socket: %w", err)
	}
	if err := sock.SetReadBuffer(c.cfg.RecvBuffer); err != nil {
		c.logf("Warning: failed to set receive buffer to %d: %v", c.cfg.RecvBuffer, err)
	}
	c.socket = sock
	c.sender = &udpSender{socket: sock, addr: addr}
	c.cmd.sender = c.sender

	if err := c.cmd.Init(c.cfg.TeamName, c.cfg.ClientVersion, c.cfg.Goalie); err != nil {
		sock.Close()
		return err
	}
	c.logf("connecting to %s as %s", addr, c.cfg.TeamName)
	return nil
}

// Close says goodbye and closes the socket.
func (c *Client) Close() error {
	if c.socket == nil {
		return nil
	}
	if err := c.cmd.Bye(); err != nil {
		c.logf("bye: %v", err)
	}
	return c.socket.Close()
}

// ReceiveTimeout is the blocking-receive timeout: one simulator step scaled
// by the slow-down factor.
func (cfg Config) ReceiveTimeout() time.Duration {
	return time.Duration(float64(cfg.Timing.SimulatorStep) * cfg.Timing.SlowDownFactor)
}

func (c *Client) receiveTimeout() time.Duration { return c.cfg.ReceiveTimeout() }

// Run receives server messages until ctx is done, the server goes silent
// or the server rejects the player.
func (c *Client) Run(ctx context.Context) error {
	if c.socket == nil {
		return ErrNotConnected
	}
	buf := make([]byte, c.cfg.RecvBuffer)
	c.lastMessageAt = c.clock.Now()

	for {
		select {
		case <-ctx.Done():
			c.logf("stopping: %v", ctx.Err())
			return ctx.Err()
		default:
		}

		if err := c.socket.SetReadDeadline(time.Now().Add(c.receiveTimeout())); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}
		n, addr, err := c.socket.ReadFromUDP(buf)
		now := c.clock.Now()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				c.HandleTimeout(now)
				if c.cfg.ServerWait > 0 && now.Sub(c.lastMessageAt) > c.cfg.ServerWait {
					return fmt.Errorf("%w for %s", ErrServerSilent, now.Sub(c.lastMessageAt))
				}
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			c.logf("UDP read error: %v", err)
			continue
		}

		if addr != nil && c.sender != nil {
			c.sender.addr = addr
		}
		if err := c.HandleMessage(buf[:n], now); err != nil {
			if errors.Is(err, ErrInitRejected) {
				return err
			}
			c.logf("Error handling message from %v: %v", addr, err)
		}
	}
}

// HandleTimeout processes a receive timeout at time at.
func (c *Client) HandleTimeout(at time.Time) {
	c.timeoutCount++
	c.decide(at)
}

// HandleMessage processes one server datagram received at time at.
func (c *Client) HandleMessage(raw []byte, at time.Time) error {
	msg, err := ParseMessage(raw)
	if err != nil {
		return err
	}
	c.lastMessageAt = at
	c.timeoutCount = 0

	switch msg.Kind {
	case MsgInit:
		if err := c.handleInit(msg); err != nil {
			return err
		}
	case MsgSenseBody:
		t := c.advance(msg.Cycle, true)
		c.sync.RecordSelfReport()
		c.lastSelfReportAt = at
		mode, ok := ParseSenseBodyView(msg.Body)
		if !ok {
			mode = c.see.ViewMode()
		}
		c.see.OnSelfReport(t, at, mode)
		c.sync.RefreshStoppedFlag(StoppedPlayMode(c.playMode))
		c.sync.AttemptAcquireSync(LivePlayMode(c.playMode))
	case MsgSee:
		t := c.advance(msg.Cycle, false)
		c.sync.RecordVisual()
		c.see.OnVisual(t, at)
		c.updateWorld(t, msg.Body)
	case MsgHear:
		t := c.advance(msg.Cycle, false)
		if mode, ok := ParseRefereeMode(msg.Body); ok {
			c.setPlayMode(mode)
		} else {
			c.updateHearing(t, msg.Body)
		}
	case MsgServerParam:
		applied := ApplyServerParams(ParseParams(msg.Body), &c.cfg)
		c.see.SetParams(c.cfg.Timing)
		c.sync.SetParams(c.cfg.Timing)
		c.tracker.SetConfig(c.cfg.Tracker)
		c.logf("server_param applied %v", applied)
	case MsgPlayerType:
		pt, err := ParsePlayerType(msg.Body, c.cfg.MaxPower)
		if err != nil {
			return err
		}
		c.world.SetPlayerType(pt)
	case MsgChangePlayerType:
		unum, typeID, err := ParseChangePlayerType(msg.Body)
		if err != nil {
			return err
		}
		if typeID >= 0 {
			c.world.AssignPlayerType(perception.SideOurs, unum, typeID)
		}
	case MsgThink:
		// Full synchronization: the server asks for this cycle's action.
		c.sync.NoteThink(timeutil.ElapsedMillis(c.lastSelfReportAt, at))
		c.act(c.sync.Current())
		return c.cmd.Done()
	case MsgError:
		if c.init.Unum == 0 {
			return fmt.Errorf("%w: %s", ErrInitRejected, msg.Body)
		}
		c.logf("server error: %s", msg.Body)
	case MsgWarning:
		c.logf("server warning: %s", msg.Body)
	case MsgPlayerParam, MsgOK, MsgUnknown:
	}

	c.decide(at)
	return nil
}

func (c *Client) handleInit(msg Message) error {
	reply, err := ParseInit(msg)
	if err != nil {
		return err
	}
	c.init = reply
	c.sync.SetSelfUnum(reply.Unum)
	c.setPlayMode(reply.PlayMode)
	c.logf("joined as %s %d (%s)", reply.Field, reply.Unum, reply.PlayMode)
	if c.cfg.SynchSee {
		return c.cmd.SynchSee()
	}
	return nil
}

func (c *Client) setPlayMode(mode string) {
	c.playMode = mode
	c.sync.NoteRefereeSignal()
	c.sync.RefreshStoppedFlag(StoppedPlayMode(mode))
}

// advance moves logical time and ages tracked players when it changes.
func (c *Client) advance(cycle int64, bySelfReport bool) gametime.Time {
	before := c.sync.Current()
	t := c.sync.AdvanceTime(cycle, bySelfReport)
	if t != before {
		c.world.NewCycle()
	}
	return t
}

func (c *Client) updateWorld(t gametime.Time, body string) {
	if c.visual == nil {
		return
	}
	self, pools, err := c.visual.ParseVisual(t, body)
	if err != nil {
		c.logf("visual at %s: %v", t, err)
		return
	}
	rep, err := c.world.UpdateByVisual(self, pools)
	if err != nil {
		c.logf("tracking at %s: %v", t, err)
		return
	}
	c.observer.Tracking(t, rep)
}

func (c *Client) updateHearing(t gametime.Time, body string) {
	if c.audio == nil {
		return
	}
	heard, err := c.audio.ParseAudio(t, body)
	if err != nil {
		c.logf("hearing at %s: %v", t, err)
		return
	}
	for _, h := range heard {
		if h.Unum == perception.UnknownUnum || h.Side == perception.SideUnknown {
			continue
		}
		c.world.UpdateByHearing(h.Side, h.Unum, h.Pos)
	}
}

func (c *Client) decide(at time.Time) {
	elapsed := timeutil.ElapsedMillis(c.lastSelfReportAt, at)
	acted := c.sync.ShouldActNow(elapsed, c.timeoutCount)
	c.observer.Decision(Decision{
		Time:         c.sync.Current(),
		At:           at,
		ElapsedMS:    elapsed,
		TimeoutCount: c.timeoutCount,
		Acted:        acted,
		View:         c.see.ViewMode(),
		PartialSync:  c.see.IsPartiallySynchronized(),
		FullSync:     c.see.IsFullySynchronized(),
	})
	if acted {
		c.act(c.sync.Current())
	}
}

func (c *Client) act(t gametime.Time) {
	if err := c.brain.Decide(t, c.world, c.cmd); err != nil {
		c.logf("decide at %s: %v", t, err)
	}
	c.sync.MarkDecision()
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
