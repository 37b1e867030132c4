// Package routing orders delivery stops for a driver.
package routing

import (
	"math"

	"github.com/google/uuid"
)

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Candidate is an order that can be placed on a route. Location is nil when the
// order has no coordinates.
type Candidate struct {
	OrderID  uuid.UUID
	Location *Point
}

// Haversine returns the great-circle distance between two points in kilometers
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// NearestNeighbour orders candidates greedily starting at origin, always visiting the closest
// remaining located candidate next. Candidates without a location keep their relative order
// and go last. Ties are broken by input order.
func NearestNeighbour(origin Point, candidates []Candidate) []Candidate {
	located := make([]Candidate, 0, len(candidates))
	var unlocated []Candidate
	for _, c := range candidates {
		if c.Location == nil {
			unlocated = append(unlocated, c)
			continue
		}
		located = append(located, c)
	}

	ordered := make([]Candidate, 0, len(candidates))
	visited := make([]bool, len(located))
	current := origin

	for range located {
		best := -1
		bestDist := math.Inf(1)
		for i, c := range located {
			if visited[i] {
				continue
			}
			if d := Haversine(current, *c.Location); d < bestDist {
				best, bestDist = i, d
			}
		}
		visited[best] = true
		ordered = append(ordered, located[best])
		current = *located[best].Location
	}

	return append(ordered, unlocated...)
}

// TotalDistance sums the leg distances from origin through the located candidates
func TotalDistance(origin Point, candidates []Candidate) float64 {
	var total float64
	current := origin
	for _, c := range candidates {
		if c.Location == nil {
			continue
		}
		total += Haversine(current, *c.Location)
		current = *c.Location
	}
	return total
}
