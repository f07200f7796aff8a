package geo

import (
	"math"
	"time"

	"tms/internal/domain/models"
)

// DefaultSpeedKMH is used for ETA when the device does not report speed.
const DefaultSpeedKMH = 25.0

// arrivalRadiusMeters: a bus within this distance of a stop is at the stop.
const arrivalRadiusMeters = 150.0

// RouteProgress describes where a bus is along its ordered stops.
type RouteProgress struct {
	TotalStops        int               `json:"total_stops"`
	StopsPassed       int               `json:"stops_passed"`
	NearestStop       *models.RouteStop `json:"nearest_stop,omitempty"`
	DistanceToNearest float64           `json:"distance_to_nearest_m"`
	NextStop          *models.RouteStop `json:"next_stop,omitempty"`
	DistanceToNext    float64           `json:"distance_to_next_m"`
	AtStop            bool              `json:"at_stop"`
	PercentComplete   float64           `json:"percent_complete"`
	ETAToNextSeconds  int               `json:"eta_to_next_seconds"`
}

// ComputeProgress finds the nearest stop to (lat, lon) and derives progress from it.
// Stops without coordinates are ignored; stops are expected in sequence order.
// speedMPS <= 0 falls back to DefaultSpeedKMH.
func ComputeProgress(stops []models.RouteStop, lat, lon, speedMPS float64) RouteProgress {
	located := make([]models.RouteStop, 0, len(stops))
	for _, s := range stops {
		if s.HasCoordinates() {
			located = append(located, s)
		}
	}

	out := RouteProgress{TotalStops: len(located)}
	if len(located) == 0 {
		return out
	}

	nearest := -1
	best := math.MaxFloat64
	for i, s := range located {
		d := HaversineDistance(lat, lon, *s.Latitude, *s.Longitude)
		if d < best {
			best = d
			nearest = i
		}
	}

	ns := located[nearest]
	out.NearestStop = &ns
	out.DistanceToNearest = round1(best)
	out.AtStop = best <= arrivalRadiusMeters

	// Past the nearest stop when we are closer to the following stop than the nearest
	// stop is to it; otherwise still approaching the nearest stop.
	next := nearest
	if out.AtStop {
		next = nearest + 1
	} else if nearest+1 < len(located) {
		a, b := located[nearest], located[nearest+1]
		segment := HaversineDistance(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
		toNext := HaversineDistance(lat, lon, *b.Latitude, *b.Longitude)
		if toNext < segment {
			next = nearest + 1
		}
	}

	out.StopsPassed = next
	if next < len(located) {
		ns := located[next]
		out.NextStop = &ns
		out.DistanceToNext = round1(HaversineDistance(lat, lon, *ns.Latitude, *ns.Longitude))
		out.ETAToNextSeconds = eta(out.DistanceToNext, speedMPS)
	}

	out.PercentComplete = round1(float64(out.StopsPassed) / float64(out.TotalStops) * 100)
	return out
}

// IsStale reports whether a fix taken at ts is older than maxAge at now.
func IsStale(ts time.Time, now time.Time, maxAge time.Duration) bool {
	return ts.IsZero() || now.Sub(ts) > maxAge
}

func eta(distanceMeters, speedMPS float64) int {
	if speedMPS <= 0.5 {
		speedMPS = DefaultSpeedKMH * 1000 / 3600
	}
	return int(math.Round(distanceMeters / speedMPS))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
