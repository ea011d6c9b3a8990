/*
Copyright © 2019 the Fireweather authors.
This file is part of Fireweather.

Fireweather is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Fireweather is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Fireweather.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package subset crops and masks gridded daily time series before
// they reach the index engine. All functions operate on arrays with
// shape [time, lat, lon] over regular latitude and longitude
// coordinate vectors, and return arrays of the same layout, so the
// engine downstream never needs to know whether its input was
// subset.
package subset

import (
	"fmt"
	"math"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

const earthRadiusKm = 6371.0

// checkGrid validates that data has shape [time, len(lats), len(lons)].
func checkGrid(data *sparse.DenseArray, lats, lons []float64) error {
	if len(data.Shape) != 3 {
		return fmt.Errorf("subset: data must have shape [time, lat, lon]; got %v", data.Shape)
	}
	if data.Shape[1] != len(lats) || data.Shape[2] != len(lons) {
		return fmt.Errorf("subset: data spatial shape %v does not match %d latitudes and %d longitudes",
			data.Shape[1:], len(lats), len(lons))
	}
	return nil
}

// BBox crops data to the cells whose centers fall inside b, where
// b.Min and b.Max are (longitude, latitude) points. It returns the
// cropped array together with the matching coordinate vectors, and
// an error if no cell centers fall inside the box.
func BBox(data *sparse.DenseArray, lats, lons []float64, b *geom.Bounds) (*sparse.DenseArray, []float64, []float64, error) {
	if err := checkGrid(data, lats, lons); err != nil {
		return nil, nil, nil, err
	}
	ji := coordRange(lats, b.Min.Y, b.Max.Y)
	ii := coordRange(lons, b.Min.X, b.Max.X)
	if len(ji) == 0 || len(ii) == 0 {
		return nil, nil, nil, fmt.Errorf("subset: bounding box (%g, %g)-(%g, %g) contains no grid cells",
			b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
	}

	nt := data.Shape[0]
	o := sparse.ZerosDense(nt, len(ji), len(ii))
	for t := 0; t < nt; t++ {
		for j, oj := range ji {
			for i, oi := range ii {
				o.Set(data.Get(t, oj, oi), t, j, i)
			}
		}
	}
	oLats := make([]float64, len(ji))
	for j, oj := range ji {
		oLats[j] = lats[oj]
	}
	oLons := make([]float64, len(ii))
	for i, oi := range ii {
		oLons[i] = lons[oi]
	}
	return o, oLats, oLons, nil
}

// coordRange returns the indices of coordinate values inside
// [lo, hi]. The coordinate vector may ascend or descend.
func coordRange(coords []float64, lo, hi float64) []int {
	var o []int
	for i, c := range coords {
		if c >= lo && c <= hi {
			o = append(o, i)
		}
	}
	return o
}

// Shape masks, with NaN, every cell whose center is not inside p
// (longitude as X, latitude as Y). The grid layout is unchanged.
func Shape(data *sparse.DenseArray, lats, lons []float64, p geom.Polygonal) (*sparse.DenseArray, error) {
	if err := checkGrid(data, lats, lons); err != nil {
		return nil, err
	}
	inside := make([]bool, len(lats)*len(lons))
	any := false
	for j, lat := range lats {
		for i, lon := range lons {
			pt := geom.Point{X: lon, Y: lat}
			if pt.Within(p) != geom.Outside {
				inside[j*len(lons)+i] = true
				any = true
			}
		}
	}
	if !any {
		return nil, fmt.Errorf("subset: polygon contains no grid cell centers")
	}

	o := sparse.ZerosDense(data.Shape...)
	nCells := len(inside)
	for t := 0; t < data.Shape[0]; t++ {
		for c := 0; c < nCells; c++ {
			if inside[c] {
				o.Elements[t*nCells+c] = data.Elements[t*nCells+c]
			} else {
				o.Elements[t*nCells+c] = math.NaN()
			}
		}
	}
	return o, nil
}

// GridPoint extracts the daily series of the grid cell nearest to
// (lon, lat) by great-circle distance. It returns the series and the
// coordinates of the selected cell.
func GridPoint(data *sparse.DenseArray, lats, lons []float64, lon, lat float64) (*sparse.DenseArray, float64, float64, error) {
	if err := checkGrid(data, lats, lons); err != nil {
		return nil, 0, 0, err
	}
	bestJ, bestI := 0, 0
	best := math.Inf(1)
	for j, clat := range lats {
		for i, clon := range lons {
			if d := greatCircle(lat, lon, clat, clon); d < best {
				best = d
				bestJ, bestI = j, i
			}
		}
	}
	nt := data.Shape[0]
	o := sparse.ZerosDense(nt)
	for t := 0; t < nt; t++ {
		o.Elements[t] = data.Get(t, bestJ, bestI)
	}
	return o, lats[bestJ], lons[bestI], nil
}

// greatCircle returns the haversine distance [km] between two
// (latitude, longitude) points in degrees.
func greatCircle(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	φ1 := lat1 * degToRad
	φ2 := lat2 * degToRad
	Δφ := (lat2 - lat1) * degToRad
	Δλ := (lon2 - lon1) * degToRad
	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// Time crops the time axis of data to the dates within
// [start, end]. The input dates must be ordered; the output
// preserves the input cadence.
func Time(data *sparse.DenseArray, dates []time.Time, start, end time.Time) (*sparse.DenseArray, []time.Time, error) {
	if len(data.Shape) < 1 || data.Shape[0] != len(dates) {
		return nil, nil, fmt.Errorf("subset: %d dates for time dimension of length %d",
			len(dates), data.Shape[0])
	}
	if end.Before(start) {
		return nil, nil, fmt.Errorf("subset: end date %v is before start date %v", end, start)
	}
	t0, t1 := -1, -1
	for t, date := range dates {
		if t0 == -1 && !date.Before(start) {
			t0 = t
		}
		if !date.After(end) {
			t1 = t
		}
	}
	if t0 == -1 || t1 < t0 {
		return nil, nil, fmt.Errorf("subset: no time steps between %v and %v", start, end)
	}

	shape := append([]int{t1 - t0 + 1}, data.Shape[1:]...)
	o := sparse.ZerosDense(shape...)
	n := len(o.Elements) / shape[0]
	copy(o.Elements, data.Elements[t0*n:(t1+1)*n])
	return o, dates[t0 : t1+1], nil
}
