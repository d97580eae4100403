// Package timing decides when the agent should compute and submit an action.
//
// The server delivers two asynchronous sensory streams: a proprioceptive
// report (sense_body) once per cycle and a visual report (see) whose period
// and phase depend on the view mode. The Synchronizer owns the agent's
// logical game time and, on every wake-up of the receive loop, answers
// whether this is the moment to act. SeeState tracks whether the visual
// stream has been phase-locked to the proprioceptive stream.
//
// Nothing in this package fails: timing anomalies are logged through
// monitoring and counted, and processing continues with the latest time.
package timing
