// Package cluster groups memory records into location clusters for marker
// rendering. Two records share a location when their place metadata matches
// exactly or they lie within a fixed distance of each other; clusters are
// the union-find closure of that pairwise relation.
package cluster

import (
	"math"

	"github.com/scrypster/waymark/pkg/types"
)

// sameLocationThresholdMeters is the distance below which two records are
// considered the same place.
const sameLocationThresholdMeters = 20.0

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// SameLocation reports whether two records represent the same place.
//
// A full metadata match (place name and address both present on both records
// and equal, case sensitive) short-circuits the distance check; otherwise the
// records match iff their great-circle distance is under 20 meters.
//
// The relation is reflexive and symmetric but not transitive: three records
// can chain within the threshold pairwise while the endpoints exceed it. The
// clusterer deliberately merges such chains ("chained proximity").
func SameLocation(a, b *types.MemoryRecord) bool {
	if a.PlaceName != "" && a.Address != "" && b.PlaceName != "" && b.Address != "" {
		if a.PlaceName == b.PlaceName && a.Address == b.Address {
			return true
		}
	}
	return DistanceMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude) < sameLocationThresholdMeters
}

// DistanceMeters returns the haversine great-circle distance between two
// WGS84 coordinates.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(a))
}
