package services

import (
	"math"

	"immo-scraper/models"
)

// EarthRadiusKm is the mean earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0088

// minDistanceKm bounds the distance term of the score.
const minDistanceKm = 0.01

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Scorer computes distance to a reference point and the desirability score.
type Scorer struct {
	reference Point
}

// NewScorer creates a Scorer measuring distances from reference.
func NewScorer(reference Point) *Scorer {
	return &Scorer{reference: reference}
}

// Distance returns the distance in km from the reference point, or
// models.NoCoordinateDistance when either coordinate is not positive.
func (s *Scorer) Distance(lat, lon float64) float64 {
	if lat <= 0 || lon <= 0 {
		return models.NoCoordinateDistance
	}
	return Haversine(s.reference.Lat, s.reference.Lon, lat, lon)
}

// Score returns the distance and the score of a listing.
func (s *Scorer) Score(l *models.Listing) (distanceKm, score float64) {
	distanceKm = s.Distance(l.Latitude, l.Longitude)
	return distanceKm, ComputeScore(l, distanceKm)
}

// Apply stores distance and score on the listing.
func (s *Scorer) Apply(l *models.Listing) {
	l.DistanceToReference, l.Score = s.Score(l)
}

// ComputeScore evaluates
//
//	(20*size/hot_rent + 0.5*kitchen + 0.5*balcony + 4/distance + rooms/8) * 100 + pictures
//
// A non-positive hot rent contributes nothing to the size term.
func ComputeScore(l *models.Listing, distanceKm float64) float64 {
	raw := 0.0
	if l.HotRent > 0 {
		raw += 20 * (l.Size / l.HotRent)
	}
	if l.BuiltInKitchen {
		raw += 0.5
	}
	if l.HaveBalcony {
		raw += 0.5
	}
	raw += 4 * (1 / math.Max(distanceKm, minDistanceKm))
	raw += l.RoomNumber / 8

	return raw*100 + float64(l.PictureCount)
}

// Haversine returns the great-circle distance in km between two points
// given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return EarthRadiusKm * c
}
