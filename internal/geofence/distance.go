// SPDX-License-Identifier: MIT

package geofence

import "math"

// EarthRadiusM is the mean Earth radius used for distance checks.
const EarthRadiusM = 6_371_000.0

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// Haversine returns the great-circle distance in meters between two points
// given in decimal degrees.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	a := sinLat*sinLat + math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*sinLng*sinLng
	return 2 * EarthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
