package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
	EarthRadiusKm     = 6371.0    // Earth's mean radius in kilometers
)

// DistanceMeters calculates the great-circle distance between two points in
// meters using the Haversine formula
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// InitialBearingDegrees calculates the initial bearing (forward azimuth) from
// point 1 to point 2
// Returns bearing in degrees [0, 360), where 0 is North, 90 is East, etc.
func InitialBearingDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	// Convert to radians
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lonDiff := (lon2 - lon1) * math.Pi / 180

	// Calculate bearing
	y := math.Sin(lonDiff) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lonDiff)
	bearing := math.Atan2(y, x)

	// Convert to degrees and normalize to 0-360
	bearingDeg := bearing * 180 / math.Pi
	return math.Mod(bearingDeg+360, 360)
}

// ToLocalEastNorth projects a point into the local tangent plane centered on
// an origin, returning meters east and meters north. Equirectangular
// approximation, valid to tens of kilometers — well beyond AR engagement
// ranges.
func ToLocalEastNorth(originLat, originLon, lat, lon float64) (east, north float64) {
	originLatRad := originLat * math.Pi / 180
	east = (lon - originLon) * math.Pi / 180 * EarthRadiusMeters * math.Cos(originLatRad)
	north = (lat - originLat) * math.Pi / 180 * EarthRadiusMeters
	return east, north
}

// FromLocalEastNorth inverts ToLocalEastNorth, converting meters east/north
// relative to an origin back into latitude/longitude degrees.
func FromLocalEastNorth(originLat, originLon, east, north float64) (lat, lon float64) {
	originLatRad := originLat * math.Pi / 180
	lat = originLat + north/EarthRadiusMeters*180/math.Pi
	lon = originLon + east/(EarthRadiusMeters*math.Cos(originLatRad))*180/math.Pi
	return lat, lon
}

// DestinationPoint calculates the destination point given a start point, bearing, and distance
// bearing: degrees (0-360), distance: meters
func DestinationPoint(lat, lon, bearing, distance float64) (float64, float64) {
	p := s2.LatLngFromDegrees(lat, lon)
	bearingRad := bearing * math.Pi / 180
	angularDistance := distance / EarthRadiusMeters

	latRad := p.Lat.Radians()
	lonRad := p.Lng.Radians()

	lat2 := math.Asin(math.Sin(latRad)*math.Cos(angularDistance) +
		math.Cos(latRad)*math.Sin(angularDistance)*math.Cos(bearingRad))

	lon2 := lonRad + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angularDistance)*math.Cos(latRad),
		math.Cos(angularDistance)-math.Sin(latRad)*math.Sin(lat2))

	return lat2 * 180 / math.Pi, lon2 * 180 / math.Pi
}

// cardinalLabels in 45° sector order starting at North.
var cardinalLabels = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// CardinalDirection maps a bearing to one of 8 compass labels using 45°
// sectors centered on N/NE/E/SE/S/SW/W/NW.
func CardinalDirection(bearing float64) string {
	b := math.Mod(bearing, 360)
	if b < 0 {
		b += 360
	}
	idx := int((b+22.5)/45) % 8
	return cardinalLabels[idx]
}
