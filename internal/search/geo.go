package search

import (
	"math"

	"greencrew/internal/store"
)

const EarthRadiusMiles = 3959.0

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Haversine is the great-circle distance between a and b in miles.
func Haversine(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Pow(math.Sin(dLng/2), 2)
	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(math.Min(1, h)))
}

// BoundingBox returns a box containing every point within radius miles of p.
// Longitudes are not wrapped; a box crossing ±180 reports CrossesAntimeridian.
func BoundingBox(p Point, radius float64) store.BoundingBox {
	angular := radius / EarthRadiusMiles
	box := store.BoundingBox{
		MinLat: p.Lat - degrees(angular),
		MaxLat: p.Lat + degrees(angular),
		MinLng: -180,
		MaxLng: 180,
	}
	if box.MinLat <= -90 || box.MaxLat >= 90 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		return box
	}

	ratio := math.Sin(angular) / math.Cos(radians(p.Lat))
	if ratio >= 1 {
		return box
	}
	dLng := degrees(math.Asin(ratio))
	box.MinLng = p.Lng - dLng
	box.MaxLng = p.Lng + dLng
	return box
}

func roundTenth(miles float64) float64 {
	return math.Round(miles*10) / 10
}
