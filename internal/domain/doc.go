// Package domain models the areas, flood history, and observations that feed
// flood-risk scoring.
//
// # Area profiles
//
// An [AreaProfile] describes the static character of a named place: how high it
// sits, how far it is from the river, how well it drains, how built-up it is,
// and which river basin governs it. Profiles are keyed by (state, city, area).
// Keys are case-insensitive and whitespace-tolerant in practice, so every lookup
// goes through [NormalizeKey]:
//
//	"  Bihar ", "PATNA", "Gandhi  Maidan"  →  bihar / patna / gandhi maidan
//
// # Flood events
//
// A [FloodEvent] is one entry in an append-only history log. Its Level is the
// peak river discharge in m³/s, the same unit as basin thresholds. Scoring reads
// at most [MaxRecentEvents] events for a place, newest first by (year, month).
//
// # Units
//
//	elevation           meters
//	distanceFromRiver   kilometers
//	vegetationCover     percent (0–100)
//	populationDensity   per square km
//	level / discharge   m³/s
//	soil moisture       fraction 0–1 as sampled, percent once derived
//
// # Validation
//
// Out-of-range values (negative elevation, month outside 1–12, unknown drainage
// grade, ...) are rejected by Validate at the boundary with [ErrInvalidInput]
// and never reach the scorer.
package domain
