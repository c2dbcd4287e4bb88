package command

import (
	"encoding/json"
	"math"
)

// Event builds a wrapped outbound payload: {"component": ..., "data": {...}}.
func Event(component string, data map[string]any) ([]byte, error) {
	return New(component, data).Encode()
}

// ClimateReading is the flat payload published for DHT11 readings.
type ClimateReading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// Encode renders the reading with both values rounded to two decimals.
func (r ClimateReading) Encode() ([]byte, error) {
	return json.Marshal(ClimateReading{
		Temperature: Round2(r.Temperature),
		Humidity:    Round2(r.Humidity),
	})
}

// Round2 rounds f to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
