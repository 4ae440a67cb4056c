package domain

import "time"

// Alert is published when a monitored location crosses the alert policy.
type Alert struct {
	ID          string    `json:"id"`
	Location    string    `json:"location"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Tier        string    `json:"tier"`
	Rainfall24h float64   `json:"rainfall_24h"`
	RiverLevel  *float64  `json:"river_level,omitempty"`
	Message     string    `json:"message"`
	AssessedAt  time.Time `json:"assessed_at"`
}
