package geo

import (
	"math"
	"time"
)

const (
	// EarthRadiusKm is Earth's radius in kilometers for Haversine calculation.
	EarthRadiusKm = 6371.0
	// MinutesPerKm is the pacing heuristic used for delivery ETA estimates.
	// This is a placeholder, not a routing engine.
	MinutesPerKm = 3.0
)

// HaversineKm calculates the great-circle distance between two points on
// Earth in kilometers using the Haversine formula.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// ETAMinutes estimates minutes to travel between two points using the fixed
// pacing heuristic.
func ETAMinutes(lat1, lng1, lat2, lng2 float64) float64 {
	return HaversineKm(lat1, lng1, lat2, lng2) * MinutesPerKm
}

// ETA holds an arrival estimate derived from a live position.
type ETA struct {
	EstimatedMinutes float64   `json:"estimated_minutes"`
	EstimatedArrival time.Time `json:"estimated_arrival"`
	LastUpdated      time.Time `json:"last_updated"`
}

// EstimateArrival computes an ETA from a position to a destination as of now.
func EstimateArrival(lat, lng, destLat, destLng float64, now time.Time) ETA {
	mins := ETAMinutes(lat, lng, destLat, destLng)
	return ETA{
		EstimatedMinutes: mins,
		EstimatedArrival: now.Add(time.Duration(mins * float64(time.Minute))),
		LastUpdated:      now,
	}
}
