// Sceneflow - Multi-Camera Scene Event Pipeline
// Copyright 2026 Parallax Vision
// SPDX-License-Identifier: Apache-2.0
// https://github.com/parallax-vision/sceneflow

package geometry

import "math"

// WGS84 ellipsoid constants.
const (
	wgs84SemiMajor   = 6378137.0
	wgs84Flattening  = 1.0 / 298.257223563
	wgs84EccentricSq = wgs84Flattening * (2 - wgs84Flattening)
	degreesToRadians = math.Pi / 180.0
)

// LLAToECEF converts a geodetic coordinate (latitude and longitude in
// degrees, altitude in meters above the ellipsoid) to Earth-Centered
// Earth-Fixed cartesian coordinates in meters.
//
// Hierarchical ingestion uses this to turn lat_long_alt payloads into a
// translation that the source scene's pose transform can map into the
// parent frame.
func LLAToECEF(lat, lon, alt float64) Point {
	latRad := lat * degreesToRadians
	lonRad := lon * degreesToRadians

	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)

	// Prime vertical radius of curvature.
	n := wgs84SemiMajor / math.Sqrt(1-wgs84EccentricSq*sinLat*sinLat)

	return Point{
		X: (n + alt) * cosLat * math.Cos(lonRad),
		Y: (n + alt) * cosLat * math.Sin(lonRad),
		Z: (n*(1-wgs84EccentricSq) + alt) * sinLat,
	}
}
