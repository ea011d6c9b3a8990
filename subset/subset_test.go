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

package subset

import (
	"math"
	"testing"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// testGrid builds a [2, 3, 4] array whose element values encode
// their own indices as 100*t + 10*j + i.
func testGrid() (*sparse.DenseArray, []float64, []float64) {
	lats := []float64{60, 50, 40}
	lons := []float64{-110, -100, -90, -80}
	data := sparse.ZerosDense(2, 3, 4)
	for t := 0; t < 2; t++ {
		for j := 0; j < 3; j++ {
			for i := 0; i < 4; i++ {
				data.Set(float64(100*t+10*j+i), t, j, i)
			}
		}
	}
	return data, lats, lons
}

func TestBBox(t *testing.T) {
	data, lats, lons := testGrid()
	b := &geom.Bounds{
		Min: geom.Point{X: -105, Y: 45},
		Max: geom.Point{X: -85, Y: 55},
	}
	got, oLats, oLons, err := BBox(data, lats, lons, b)
	if err != nil {
		t.Fatal(err)
	}
	if len(oLats) != 1 || oLats[0] != 50 {
		t.Errorf("latitudes = %v, want [50]", oLats)
	}
	if len(oLons) != 2 || oLons[0] != -100 || oLons[1] != -90 {
		t.Errorf("longitudes = %v, want [-100 -90]", oLons)
	}
	// Row j=1, columns i=1, 2 of each time step.
	want := []float64{11, 12, 111, 112}
	for i, w := range want {
		if got.Elements[i] != w {
			t.Errorf("element %d = %g, want %g", i, got.Elements[i], w)
		}
	}
}

func TestBBoxEmpty(t *testing.T) {
	data, lats, lons := testGrid()
	b := &geom.Bounds{
		Min: geom.Point{X: 0, Y: 0},
		Max: geom.Point{X: 10, Y: 10},
	}
	if _, _, _, err := BBox(data, lats, lons, b); err == nil {
		t.Error("expected an error for an empty bounding box")
	}
}

func TestShape(t *testing.T) {
	data, lats, lons := testGrid()
	// A triangle around the cell at (50, -100) only.
	p := geom.Polygon{{
		{X: -104, Y: 46}, {X: -96, Y: 46}, {X: -100, Y: 54}, {X: -104, Y: 46},
	}}
	got, err := Shape(data, lats, lons, p)
	if err != nil {
		t.Fatal(err)
	}
	for t0 := 0; t0 < 2; t0++ {
		for j := 0; j < 3; j++ {
			for i := 0; i < 4; i++ {
				v := got.Get(t0, j, i)
				if j == 1 && i == 1 {
					if math.IsNaN(v) {
						t.Errorf("cell inside the polygon was masked")
					}
				} else if !math.IsNaN(v) {
					t.Errorf("cell (%d, %d) outside the polygon kept value %g", j, i, v)
				}
			}
		}
	}
}

func TestGridPoint(t *testing.T) {
	data, lats, lons := testGrid()
	series, lat, lon, err := GridPoint(data, lats, lons, -99, 51)
	if err != nil {
		t.Fatal(err)
	}
	if lat != 50 || lon != -100 {
		t.Errorf("selected cell (%g, %g), want (50, -100)", lat, lon)
	}
	if series.Shape[0] != 2 || series.Elements[0] != 11 || series.Elements[1] != 111 {
		t.Errorf("series = %v, want [11 111]", series.Elements)
	}
}

func TestTime(t *testing.T) {
	data, _, _ := testGrid()
	dates := []time.Time{
		time.Date(2017, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2017, 6, 2, 0, 0, 0, 0, time.UTC),
	}
	got, gotDates, err := Time(data, dates, dates[1], dates[1])
	if err != nil {
		t.Fatal(err)
	}
	if len(gotDates) != 1 || !gotDates[0].Equal(dates[1]) {
		t.Errorf("dates = %v, want [%v]", gotDates, dates[1])
	}
	if got.Shape[0] != 1 || got.Get(0, 0, 0) != 100 {
		t.Errorf("got %v", got.Elements)
	}

	if _, _, err := Time(data, dates, dates[1], dates[0]); err == nil {
		t.Error("expected an error for a reversed date range")
	}
	outside := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, _, err := Time(data, dates, outside, outside.AddDate(0, 0, 1)); err == nil {
		t.Error("expected an error for a range outside the record")
	}
}
