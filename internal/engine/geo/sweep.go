package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/rendis/leadsweep/internal/model"
)

// DefaultDelta is the sweep offset in decimal degrees (~3 km of latitude).
const DefaultDelta = 0.03

// Sweep expands a center into a plus-shaped set of five points: the center,
// then north, south, east and west of it by delta degrees. The search
// service caps results per query, so neighbouring points surface entities
// outside the first query's window.
func Sweep(center model.Coordinate, delta float64) []model.Coordinate {
	c := center.Point()
	pts := []orb.Point{
		c,
		{c.Lon(), c.Lat() + delta},
		{c.Lon(), c.Lat() - delta},
		{c.Lon() + delta, c.Lat()},
		{c.Lon() - delta, c.Lat()},
	}

	out := make([]model.Coordinate, len(pts))
	for i, p := range pts {
		out[i] = model.CoordinateFromPoint(p)
	}
	return out
}

// SweepRadius returns the distance in metres between the center and a
// latitude-offset sweep point. Used as the query radius so adjacent sweep
// circles touch.
func SweepRadius(center model.Coordinate, delta float64) float64 {
	c := center.Point()
	return orbgeo.Distance(c, orb.Point{c.Lon(), c.Lat() + delta})
}

// SweepBound is the bounding box covered by the sweep points.
func SweepBound(center model.Coordinate, delta float64) orb.Bound {
	var mp orb.MultiPoint
	for _, c := range Sweep(center, delta) {
		mp = append(mp, c.Point())
	}
	return mp.Bound()
}
