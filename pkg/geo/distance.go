package geo

import "math"

const (
	earthRadiusM = 6371007.0

	degToRad = math.Pi / 180.0
)

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

func DegreeToRadians(angle float64) float64 {
	return angle * degToRad
}

// HaversineDistance returns the great-circle distance between two
// positions in meters.
func HaversineDistance(latOne, longOne, latTwo, longTwo float64) float64 {
	latOne = DegreeToRadians(latOne)
	longOne = DegreeToRadians(longOne)
	latTwo = DegreeToRadians(latTwo)
	longTwo = DegreeToRadians(longTwo)

	a := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	c := 2.0 * math.Asin(math.Sqrt(a))
	return earthRadiusM * c
}

// BearingTo returns the initial bearing in degrees (-180..180) from the
// first position to the second.
func BearingTo(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := DegreeToRadians(lat1)
	phi2 := DegreeToRadians(lat2)
	deltaLambda := DegreeToRadians(lon2 - lon1)

	y := math.Sin(deltaLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)
	return math.Atan2(y, x) * (180.0 / math.Pi)
}
