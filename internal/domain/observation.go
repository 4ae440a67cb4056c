package domain

import "time"

// SoilSample is one point of a soil-moisture time series. Value is the
// fraction of saturation (0–1).
type SoilSample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// SoilSeries is the outcome of fetching a soil-moisture series. Err is set
// when the upstream source failed or returned malformed data.
type SoilSeries struct {
	Samples []SoilSample
	Err     error
}
