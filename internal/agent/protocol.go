package agent

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/rcss.agent/internal/perception"
	"github.com/banshee-data/rcss.agent/internal/timing"
)

// ErrMalformed is returned for datagrams that are not a parenthesised
// server message.
var ErrMalformed = errors.New("agent: malformed message")

// MessageKind classifies a server message by its header.
type MessageKind int

const (
	MsgUnknown MessageKind = iota
	MsgInit
	MsgSenseBody
	MsgSee
	MsgHear
	MsgServerParam
	MsgPlayerParam
	MsgPlayerType
	MsgChangePlayerType
	MsgThink
	MsgOK
	MsgWarning
	MsgError
)

var messageKinds = map[string]MessageKind{
	"init":               MsgInit,
	"sense_body":         MsgSenseBody,
	"see":                MsgSee,
	"hear":               MsgHear,
	"server_param":       MsgServerParam,
	"player_param":       MsgPlayerParam,
	"player_type":        MsgPlayerType,
	"change_player_type": MsgChangePlayerType,
	"think":              MsgThink,
	"ok":                 MsgOK,
	"warning":            MsgWarning,
	"error":              MsgError,
}

// timed reports whether messages of this kind carry a cycle number right
// after the header.
func (k MessageKind) timed() bool {
	return k == MsgSenseBody || k == MsgSee || k == MsgHear
}

// Message is a classified server message. Body is the text after the
// header (and cycle, when present) without the closing parenthesis.
type Message struct {
	Kind     MessageKind
	Name     string
	Cycle    int64
	HasCycle bool
	Body     string
}

// ParseMessage classifies one datagram.
func ParseMessage(raw []byte) (Message, error) {
	s := strings.TrimRight(string(raw), "\x00 \t\r\n")
	if len(s) < 3 || s[0] != '(' || s[len(s)-1] != ')' {
		return Message{}, fmt.Errorf("%w: %q", ErrMalformed, clip(s))
	}
	name, rest, _ := strings.Cut(s[1:len(s)-1], " ")
	if name == "" || strings.ContainsAny(name, "()") {
		return Message{}, fmt.Errorf("%w: %q", ErrMalformed, clip(s))
	}

	msg := Message{Kind: messageKinds[name], Name: name, Body: strings.TrimSpace(rest)}
	if msg.Kind.timed() {
		tok, body, _ := strings.Cut(msg.Body, " ")
		cycle, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return Message{}, fmt.Errorf("%w: bad cycle %q in %s", ErrMalformed, tok, name)
		}
		msg.Cycle = cycle
		msg.HasCycle = true
		msg.Body = strings.TrimSpace(body)
	}
	return msg, nil
}

func clip(s string) string {
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}

// ParseParams collects the top-level "(name value)" groups of body. Values
// keep any nested groups verbatim; quoted values are unquoted.
func ParseParams(body string) map[string]string {
	out := make(map[string]string)
	depth, start := 0, -1
	inQuote := false
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if inQuote {
			if ch == '"' {
				inQuote = false
			}
			continue
		}
		switch ch {
		case '"':
			inQuote = true
		case '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ')':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				name, value, _ := strings.Cut(strings.TrimSpace(body[start:i]), " ")
				out[name] = strings.Trim(strings.TrimSpace(value), `"`)
				start = -1
			}
		}
	}
	return out
}

// InitReply is the server's answer to (init ...).
type InitReply struct {
	Side     perception.Side // always SideOurs; Field records l or r
	Field    string
	Unum     int
	PlayMode string
}

// ParseInit reads "l 7 before_kick_off".
func ParseInit(msg Message) (InitReply, error) {
	fields := strings.Fields(msg.Body)
	if len(fields) < 3 || (fields[0] != "l" && fields[0] != "r") {
		return InitReply{}, fmt.Errorf("%w: init %q", ErrMalformed, msg.Body)
	}
	unum, err := strconv.Atoi(fields[1])
	if err != nil || unum <= 0 {
		return InitReply{}, fmt.Errorf("%w: init unum %q", ErrMalformed, fields[1])
	}
	return InitReply{Side: perception.SideOurs, Field: fields[0], Unum: unum, PlayMode: fields[2]}, nil
}

// ParseRefereeMode returns the play mode announced by a referee hear
// message body ("referee play_on").
func ParseRefereeMode(body string) (string, bool) {
	fields := strings.Fields(body)
	if len(fields) < 2 || fields[0] != "referee" {
		return "", false
	}
	return fields[1], true
}

// ParseSenseBodyView extracts "(view_mode high normal)" from a sense_body
// body.
func ParseSenseBodyView(body string) (timing.ViewMode, bool) {
	v, ok := ParseParams(body)["view_mode"]
	if !ok {
		return timing.ViewMode{}, false
	}
	fields := strings.Fields(v)
	if len(fields) != 2 {
		return timing.ViewMode{}, false
	}
	q, okQ := timing.ParseViewQuality(fields[0])
	w, okW := timing.ParseViewWidth(fields[1])
	if !okQ || !okW {
		return timing.ViewMode{}, false
	}
	return timing.ViewMode{Width: w, Quality: q}, true
}

// ParsePlayerType reads a player_type message. RealMaxSpeed is the
// steady-state speed of a full-power dash, max_power·dash_power_rate·
// effort_max/(1−player_decay), capped at player_speed_max. When the dash
// fields are absent the cap is used.
func ParsePlayerType(body string, maxPower float64) (perception.PlayerType, error) {
	params := ParseParams(body)
	id, err := strconv.Atoi(params["id"])
	if err != nil {
		return perception.PlayerType{}, fmt.Errorf("%w: player_type id %q", ErrMalformed, params["id"])
	}
	speedMax, err := strconv.ParseFloat(params["player_speed_max"], 64)
	if err != nil {
		return perception.PlayerType{}, fmt.Errorf("%w: player_type %d speed %q", ErrMalformed, id, params["player_speed_max"])
	}
	return perception.PlayerType{ID: id, RealMaxSpeed: realSpeedMax(params, maxPower, speedMax)}, nil
}

func realSpeedMax(params map[string]string, maxPower, speedMax float64) float64 {
	rate, err1 := strconv.ParseFloat(params["dash_power_rate"], 64)
	effort, err2 := strconv.ParseFloat(params["effort_max"], 64)
	decay, err3 := strconv.ParseFloat(params["player_decay"], 64)
	if err1 != nil || err2 != nil || err3 != nil || decay >= 1 || maxPower <= 0 {
		return speedMax
	}
	return math.Min(speedMax, maxPower*rate*effort/(1-decay))
}

// ParseChangePlayerType reads "unum type" for a teammate, or "unum" for an
// opponent whose new type is hidden. typeID is -1 when hidden.
func ParseChangePlayerType(body string) (unum, typeID int, err error) {
	fields := strings.Fields(body)
	if len(fields) == 0 || len(fields) > 2 {
		return 0, 0, fmt.Errorf("%w: change_player_type %q", ErrMalformed, body)
	}
	if unum, err = strconv.Atoi(fields[0]); err != nil {
		return 0, 0, fmt.Errorf("%w: change_player_type unum %q", ErrMalformed, fields[0])
	}
	if len(fields) == 1 {
		return unum, -1, nil
	}
	if typeID, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, fmt.Errorf("%w: change_player_type type %q", ErrMalformed, fields[1])
	}
	return unum, typeID, nil
}

// ApplyServerParams overlays the fields of a server_param message that the
// agent uses on cfg. It returns the names applied.
func ApplyServerParams(params map[string]string, cfg *Config) []string {
	var applied []string
	p := &cfg.Timing
	if v, err := strconv.ParseFloat(params["simulator_step"], 64); err == nil && v > 0 {
		p.SimulatorStep = msDuration(v)
		applied = append(applied, "simulator_step")
	}
	if v, err := strconv.ParseFloat(params["slow_down_factor"], 64); err == nil && v > 0 {
		p.SlowDownFactor = v
		applied = append(applied, "slow_down_factor")
	}
	if v, ok := parseBool(params["synch_mode"]); ok {
		p.SynchMode = v
		applied = append(applied, "synch_mode")
	}
	if v, err := strconv.Atoi(params["synch_see_offset"]); err == nil && v >= 0 {
		p.SynchSeeOffsetMS = v
		applied = append(applied, "synch_see_offset")
	}
	if v, err := strconv.Atoi(params["synch_offset"]); err == nil && v >= 0 {
		p.SynchOffsetMS = v
		applied = append(applied, "synch_offset")
	}
	if v, err := strconv.ParseFloat(params["player_rand"], 64); err == nil && v >= 0 {
		cfg.Tracker.DashNoiseFactor = v
		applied = append(applied, "player_rand")
	}
	if v, err := strconv.ParseFloat(params["max_power"], 64); err == nil && v > 0 {
		cfg.MaxPower = v
		applied = append(applied, "max_power")
	}
	return applied
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "1", "true", "on":
		return true, true
	case "0", "false", "off":
		return false, true
	}
	return false, false
}

// StoppedPlayMode reports whether the server clock is paused in mode.
func StoppedPlayMode(mode string) bool {
	switch mode {
	case "before_kick_off", "time_over", "half_time":
		return true
	}
	return strings.HasPrefix(mode, "goal_l_") || strings.HasPrefix(mode, "goal_r_")
}

// LivePlayMode reports whether the ball is in open play.
func LivePlayMode(mode string) bool { return mode == "play_on" }
