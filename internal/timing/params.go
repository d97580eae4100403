package timing

import (
	"time"

	"github.com/banshee-data/rcss.agent/internal/config"
)

// Params is the explicit timing context passed to the Synchronizer and
// SeeState. It is derived from the agent configuration and updated when the
// server announces its parameters.
type Params struct {
	SimulatorStep    time.Duration
	SlowDownFactor   float64
	SynchMode        bool // server-driven full synchronization
	SynchSeeOffsetMS int  // fixed offset of the visual report in synch see mode
	SynchOffsetMS    int  // offset of the think message in full synchronization

	WaitTimeThrSynchViewMS   int
	WaitTimeThrNoSynchViewMS int

	SynchArrivalWindowMS int // a visual report this close to the self report counts as coincident
	SynchRequiredCount   int // consecutive coincident arrivals needed to confirm synchronization
}

// ParamsFromConfig builds Params from a loaded AgentConfig.
func ParamsFromConfig(cfg *config.AgentConfig) Params {
	return Params{
		SimulatorStep:            cfg.GetSimulatorStep(),
		SlowDownFactor:           cfg.GetSlowDownFactor(),
		SynchMode:                cfg.GetSynchMode(),
		SynchSeeOffsetMS:         cfg.GetSynchSeeOffsetMS(),
		SynchOffsetMS:            cfg.GetSynchOffsetMS(),
		WaitTimeThrSynchViewMS:   cfg.GetWaitTimeThrSynchViewMS(),
		WaitTimeThrNoSynchViewMS: cfg.GetWaitTimeThrNoSynchViewMS(),
		SynchArrivalWindowMS:     cfg.GetSynchArrivalWindowMS(),
		SynchRequiredCount:       cfg.GetSynchRequiredCount(),
	}
}

// DefaultParams returns Params built from the built-in configuration defaults.
func DefaultParams() Params {
	return ParamsFromConfig(config.EmptyAgentConfig())
}
