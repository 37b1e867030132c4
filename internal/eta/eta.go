// Package eta estimates driver arrival times at route stops from directions legs.
package eta

import (
	"math"
	"time"
)

// DefaultServiceTime is the dwell time spent at every stop before the target
const DefaultServiceTime = 300 * time.Second

// StatusOK is the directions status that carries usable legs
const StatusOK = "OK"

// DirectionsResponse is the subset of a Google Directions style response the estimator reads
type DirectionsResponse struct {
	Status string           `json:"status"`
	Routes []DirectionRoute `json:"routes"`
}

// DirectionRoute is one proposed route
type DirectionRoute struct {
	Legs []Leg `json:"legs"`
}

// Leg is the travel between two consecutive points, starting at the driver
type Leg struct {
	Duration TextValue `json:"duration"`
	Distance TextValue `json:"distance"`
}

// TextValue is a numeric value with its display text. Durations are in seconds.
type TextValue struct {
	Text  string `json:"text"`
	Value int64  `json:"value"`
}

// Estimate returns the minutes until the driver reaches target. The legs start at the driver's
// location and visit stops in order. ok is false when the directions status is not OK, the target
// is not in stops, or there are not enough legs to reach it.
func Estimate(resp *DirectionsResponse, stops []string, target string, serviceTime time.Duration) (minutes int, ok bool) {
	targetIndex := -1
	for i, id := range stops {
		if id == target {
			targetIndex = i
			break
		}
	}
	if targetIndex < 0 {
		return 0, false
	}
	return EstimateAt(resp, targetIndex, serviceTime)
}

// EstimateAt is Estimate with the target given by its position in the stop list
func EstimateAt(resp *DirectionsResponse, targetIndex int, serviceTime time.Duration) (minutes int, ok bool) {
	if resp == nil || resp.Status != StatusOK || len(resp.Routes) == 0 || targetIndex < 0 {
		return 0, false
	}

	legs := resp.Routes[0].Legs
	if len(legs) <= targetIndex {
		return 0, false
	}

	var travelSecs int64
	for _, leg := range legs[:targetIndex+1] {
		travelSecs += leg.Duration.Value
	}
	serviceSecs := int64(targetIndex) * int64(serviceTime/time.Second)

	return int(math.Ceil(float64(travelSecs+serviceSecs) / 60)), true
}
