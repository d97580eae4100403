package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical agent defaults file.
const DefaultConfigPath = "config/agent.defaults.json"

// AgentConfig is the root configuration for the agent client. Every field
// is optional; the Get* accessors fall back to built-in defaults so a
// partial JSON file is always safe to load.
type AgentConfig struct {
	// Server params, normally overwritten by the server_param message.
	SimulatorStep    *string  `json:"simulator_step,omitempty"` // duration string like "100ms"
	SlowDownFactor   *float64 `json:"slow_down_factor,omitempty"`
	SynchMode        *bool    `json:"synch_mode,omitempty"`
	SynchSeeOffsetMS *int     `json:"synch_see_offset_ms,omitempty"`
	SynchOffsetMS    *int     `json:"synch_offset_ms,omitempty"`
	PlayerRand       *float64 `json:"player_rand,omitempty"`
	MaxPower         *float64 `json:"max_power,omitempty"`

	// Decision timing
	WaitTimeThrSynchViewMS   *int `json:"wait_time_thr_synch_view_ms,omitempty"`
	WaitTimeThrNoSynchViewMS *int `json:"wait_time_thr_nosynch_view_ms,omitempty"`
	SynchArrivalWindowMS     *int `json:"synch_arrival_window_ms,omitempty"`
	SynchRequiredCount       *int `json:"synch_required_count,omitempty"`

	// Player tracking
	SelfLocalizationError *float64 `json:"self_localization_error,omitempty"`
	HeardSensorError      *float64 `json:"heard_sensor_error,omitempty"`
	ErrorScale            *float64 `json:"error_scale,omitempty"`
	ExhaustiveLimit       *int     `json:"exhaustive_limit,omitempty"`
	ExhaustiveNodeBudget  *int     `json:"exhaustive_node_budget,omitempty"`
	DefaultRealMaxSpeed   *float64 `json:"default_real_max_speed,omitempty"`

	// Network
	ServerAddress *string `json:"server_address,omitempty"`
	TeamName      *string `json:"team_name,omitempty"`
	ClientVersion *int    `json:"client_version,omitempty"`
	RecvBuffer    *int    `json:"recv_buffer,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAgentConfig returns an AgentConfig with all fields set to nil.
func EmptyAgentConfig() *AgentConfig {
	return &AgentConfig{}
}

// DefaultAgentConfig returns an AgentConfig with every field populated from
// the built-in defaults.
func DefaultAgentConfig() *AgentConfig {
	c := EmptyAgentConfig()
	return &AgentConfig{
		SimulatorStep:            ptrString(c.GetSimulatorStep().String()),
		SlowDownFactor:           ptrFloat64(c.GetSlowDownFactor()),
		SynchMode:                ptrBool(c.GetSynchMode()),
		SynchSeeOffsetMS:         ptrInt(c.GetSynchSeeOffsetMS()),
		SynchOffsetMS:            ptrInt(c.GetSynchOffsetMS()),
		PlayerRand:               ptrFloat64(c.GetPlayerRand()),
		MaxPower:                 ptrFloat64(c.GetMaxPower()),
		WaitTimeThrSynchViewMS:   ptrInt(c.GetWaitTimeThrSynchViewMS()),
		WaitTimeThrNoSynchViewMS: ptrInt(c.GetWaitTimeThrNoSynchViewMS()),
		SynchArrivalWindowMS:     ptrInt(c.GetSynchArrivalWindowMS()),
		SynchRequiredCount:       ptrInt(c.GetSynchRequiredCount()),
		SelfLocalizationError:    ptrFloat64(c.GetSelfLocalizationError()),
		HeardSensorError:         ptrFloat64(c.GetHeardSensorError()),
		ErrorScale:               ptrFloat64(c.GetErrorScale()),
		ExhaustiveLimit:          ptrInt(c.GetExhaustiveLimit()),
		ExhaustiveNodeBudget:     ptrInt(c.GetExhaustiveNodeBudget()),
		DefaultRealMaxSpeed:      ptrFloat64(c.GetDefaultRealMaxSpeed()),
		ServerAddress:            ptrString(c.GetServerAddress()),
		TeamName:                 ptrString(c.GetTeamName()),
		ClientVersion:            ptrInt(c.GetClientVersion()),
		RecvBuffer:               ptrInt(c.GetRecvBuffer()),
	}
}

// LoadAgentConfig loads an AgentConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAgentConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AgentConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/tools/timing-plot/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadAgentConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AgentConfig) Validate() error {
	if c.SimulatorStep != nil && *c.SimulatorStep != "" {
		d, err := time.ParseDuration(*c.SimulatorStep)
		if err != nil {
			return fmt.Errorf("invalid simulator_step '%s': %w", *c.SimulatorStep, err)
		}
		if d <= 0 {
			return fmt.Errorf("simulator_step must be positive, got %s", d)
		}
	}
	if c.SlowDownFactor != nil && *c.SlowDownFactor <= 0 {
		return fmt.Errorf("slow_down_factor must be positive, got %f", *c.SlowDownFactor)
	}
	if c.PlayerRand != nil && (*c.PlayerRand < 0 || *c.PlayerRand >= 1) {
		return fmt.Errorf("player_rand must be in [0, 1), got %f", *c.PlayerRand)
	}
	if c.MaxPower != nil && *c.MaxPower <= 0 {
		return fmt.Errorf("max_power must be positive, got %f", *c.MaxPower)
	}
	if c.SynchOffsetMS != nil && *c.SynchOffsetMS < 0 {
		return fmt.Errorf("synch_offset_ms must be non-negative, got %d", *c.SynchOffsetMS)
	}
	if c.WaitTimeThrSynchViewMS != nil && *c.WaitTimeThrSynchViewMS < 0 {
		return fmt.Errorf("wait_time_thr_synch_view_ms must be non-negative, got %d", *c.WaitTimeThrSynchViewMS)
	}
	if c.WaitTimeThrNoSynchViewMS != nil && *c.WaitTimeThrNoSynchViewMS < 0 {
		return fmt.Errorf("wait_time_thr_nosynch_view_ms must be non-negative, got %d", *c.WaitTimeThrNoSynchViewMS)
	}
	if c.SynchRequiredCount != nil && *c.SynchRequiredCount < 1 {
		return fmt.Errorf("synch_required_count must be at least 1, got %d", *c.SynchRequiredCount)
	}
	if c.SelfLocalizationError != nil && *c.SelfLocalizationError < 0 {
		return fmt.Errorf("self_localization_error must be non-negative, got %f", *c.SelfLocalizationError)
	}
	if c.ExhaustiveLimit != nil && *c.ExhaustiveLimit < 1 {
		return fmt.Errorf("exhaustive_limit must be at least 1, got %d", *c.ExhaustiveLimit)
	}
	if c.ExhaustiveNodeBudget != nil && *c.ExhaustiveNodeBudget < 1 {
		return fmt.Errorf("exhaustive_node_budget must be at least 1, got %d", *c.ExhaustiveNodeBudget)
	}
	if c.DefaultRealMaxSpeed != nil && *c.DefaultRealMaxSpeed <= 0 {
		return fmt.Errorf("default_real_max_speed must be positive, got %f", *c.DefaultRealMaxSpeed)
	}
	return nil
}

// GetSimulatorStep parses and returns the SimulatorStep as a time.Duration.
func (c *AgentConfig) GetSimulatorStep() time.Duration {
	if c.SimulatorStep == nil || *c.SimulatorStep == "" {
		return 100 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.SimulatorStep)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond // default on parse error
	}
	return d
}

// GetSlowDownFactor returns the slow_down_factor value or the default.
func (c *AgentConfig) GetSlowDownFactor() float64 {
	if c.SlowDownFactor == nil {
		return 1.0
	}
	return *c.SlowDownFactor
}

// GetSynchMode returns the synch_mode value or the default.
func (c *AgentConfig) GetSynchMode() bool {
	if c.SynchMode == nil {
		return false
	}
	return *c.SynchMode
}

// GetSynchSeeOffsetMS returns the synch_see_offset_ms value or the default.
func (c *AgentConfig) GetSynchSeeOffsetMS() int {
	if c.SynchSeeOffsetMS == nil {
		return 0
	}
	return *c.SynchSeeOffsetMS
}

// GetSynchOffsetMS returns the synch_offset_ms value or the default.
func (c *AgentConfig) GetSynchOffsetMS() int {
	if c.SynchOffsetMS == nil {
		return 60
	}
	return *c.SynchOffsetMS
}

// GetPlayerRand returns the player_rand value (dash noise factor) or the default.
func (c *AgentConfig) GetPlayerRand() float64 {
	if c.PlayerRand == nil {
		return 0.1
	}
	return *c.PlayerRand
}

// GetMaxPower returns the server's max_power (the largest dash power) or
// the default.
func (c *AgentConfig) GetMaxPower() float64 {
	if c.MaxPower == nil {
		return 100
	}
	return *c.MaxPower
}

// GetWaitTimeThrSynchViewMS returns the wait threshold used while the visual
// report is synchronized with the proprioceptive report.
func (c *AgentConfig) GetWaitTimeThrSynchViewMS() int {
	if c.WaitTimeThrSynchViewMS == nil {
		return 79
	}
	return *c.WaitTimeThrSynchViewMS
}

// GetWaitTimeThrNoSynchViewMS returns the wait threshold used without
// visual synchronization.
func (c *AgentConfig) GetWaitTimeThrNoSynchViewMS() int {
	if c.WaitTimeThrNoSynchViewMS == nil {
		return 75
	}
	return *c.WaitTimeThrNoSynchViewMS
}

// GetSynchArrivalWindowMS returns the synch_arrival_window_ms value or the default.
func (c *AgentConfig) GetSynchArrivalWindowMS() int {
	if c.SynchArrivalWindowMS == nil {
		return 10
	}
	return *c.SynchArrivalWindowMS
}

// GetSynchRequiredCount returns the synch_required_count value or the default.
func (c *AgentConfig) GetSynchRequiredCount() int {
	if c.SynchRequiredCount == nil {
		return 3
	}
	return *c.SynchRequiredCount
}

// GetSelfLocalizationError returns the self_localization_error value or the default.
func (c *AgentConfig) GetSelfLocalizationError() float64 {
	if c.SelfLocalizationError == nil {
		return 1.2
	}
	return *c.SelfLocalizationError
}

// GetHeardSensorError returns the heard_sensor_error value or the default.
func (c *AgentConfig) GetHeardSensorError() float64 {
	if c.HeardSensorError == nil {
		return 2.0
	}
	return *c.HeardSensorError
}

// GetErrorScale returns the error_scale value or the default.
func (c *AgentConfig) GetErrorScale() float64 {
	if c.ErrorScale == nil {
		return 3.5
	}
	return *c.ErrorScale
}

// GetExhaustiveLimit returns the exhaustive_limit value or the default.
func (c *AgentConfig) GetExhaustiveLimit() int {
	if c.ExhaustiveLimit == nil {
		return 9
	}
	return *c.ExhaustiveLimit
}

// GetExhaustiveNodeBudget returns the number of search nodes the exhaustive
// combination search may visit before the tracker switches to Hungarian
// assignment.
func (c *AgentConfig) GetExhaustiveNodeBudget() int {
	if c.ExhaustiveNodeBudget == nil {
		return 20000
	}
	return *c.ExhaustiveNodeBudget
}

// GetDefaultRealMaxSpeed returns the default_real_max_speed value or the default.
func (c *AgentConfig) GetDefaultRealMaxSpeed() float64 {
	if c.DefaultRealMaxSpeed == nil {
		return 1.05
	}
	return *c.DefaultRealMaxSpeed
}

// GetServerAddress returns the server_address value or the default.
func (c *AgentConfig) GetServerAddress() string {
	if c.ServerAddress == nil || *c.ServerAddress == "" {
		return "localhost:6000"
	}
	return *c.ServerAddress
}

// GetTeamName returns the team_name value or the default.
func (c *AgentConfig) GetTeamName() string {
	if c.TeamName == nil || *c.TeamName == "" {
		return "banshee"
	}
	return *c.TeamName
}

// GetClientVersion returns the client_version value or the default.
func (c *AgentConfig) GetClientVersion() int {
	if c.ClientVersion == nil {
		return 18
	}
	return *c.ClientVersion
}

// GetRecvBuffer returns the recv_buffer value or the default.
func (c *AgentConfig) GetRecvBuffer() int {
	if c.RecvBuffer == nil {
		return 8192
	}
	return *c.RecvBuffer
}

// GetReceiveTimeout is the blocking-receive timeout: one simulator step
// scaled by the slow-down factor.
func (c *AgentConfig) GetReceiveTimeout() time.Duration {
	return time.Duration(float64(c.GetSimulatorStep()) * c.GetSlowDownFactor())
}
