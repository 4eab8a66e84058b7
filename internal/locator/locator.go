// Package locator converts Maidenhead grid locators to coordinates and
// measures great-circle distance and bearing between them.
package locator

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius
const EarthRadiusKm = 6371.0

// field, square and subsquare character ranges with their size in degrees
var pairs = []struct {
	min, max byte
	lon, lat float64
}{
	{'A', 'R', 20, 10},
	{'0', '9', 2, 1},
	{'A', 'X', 2.0 / 24, 1.0 / 24},
}

// Parse returns the centre of a 2, 4 or 6 character locator
func Parse(grid string) (s2.LatLng, error) {
	mh := strings.ToUpper(strings.TrimSpace(grid))
	n := len(mh) / 2
	if len(mh)%2 != 0 || n < 1 || n > len(pairs) {
		return s2.LatLng{}, fmt.Errorf("locator %q must have 2, 4 or 6 characters", grid)
	}

	lon, lat := -180.0, -90.0
	for i := 0; i < n; i++ {
		p := pairs[i]
		a, b := mh[2*i], mh[2*i+1]
		if a < p.min || a > p.max || b < p.min || b > p.max {
			return s2.LatLng{}, fmt.Errorf("locator %q: pair %d must be in %c..%c", grid, i+1, p.min, p.max)
		}
		lon += float64(a-p.min) * p.lon
		lat += float64(b-p.min) * p.lat

		if i == n-1 {
			lon += p.lon / 2
			lat += p.lat / 2
		}
	}

	return s2.LatLngFromDegrees(lat, lon), nil
}

// Valid reports whether grid parses
func Valid(grid string) bool {
	_, err := Parse(grid)
	return err == nil
}

// DistanceKm returns the great-circle distance between two points
func DistanceKm(a, b s2.LatLng) float64 {
	return a.Distance(b).Radians() * EarthRadiusKm
}

// Bearing returns the initial bearing from a to b in degrees, 0..360
func Bearing(a, b s2.LatLng) float64 {
	lat1, lat2 := a.Lat.Radians(), b.Lat.Radians()
	dlon := (b.Lng - a.Lng).Radians()

	angle := s1.Angle(math.Atan2(
		math.Sin(dlon)*math.Cos(lat2),
		math.Cos(lat1)*math.Sin(lat2)-math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon),
	))

	deg := angle.Degrees()
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Path is the distance and bearing from a home station to a remote locator
type Path struct {
	DistanceKm float64
	Bearing    float64
}

// Between computes the path from one locator to another
func Between(home, remote string) (Path, error) {
	a, err := Parse(home)
	if err != nil {
		return Path{}, err
	}
	b, err := Parse(remote)
	if err != nil {
		return Path{}, err
	}
	return Path{DistanceKm: DistanceKm(a, b), Bearing: Bearing(a, b)}, nil
}

// String formats the path the way spot lists show it
func (p Path) String() string {
	return fmt.Sprintf("%.0f km %03.0f°", p.DistanceKm, p.Bearing)
}
