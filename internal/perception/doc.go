// Package perception reconciles each cycle's player sightings with the
// persistent tracked-player rosters.
//
// Responsibilities: identity matching by uniform number, gating sightings
// against each tracked player's uncertainty radius, resolving unambiguous
// pairs, choosing the best combination for the remaining ambiguous ones,
// and creating tracked players for leftover sightings.
// Key types: Sighting, Pools, PlayerObject, Rosters, Tracker.
//
// Sighting parsing and localization happen upstream; the tracker assumes
// well-typed, already-localized input.
package perception
