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

// Package fireweather computes the daily indices of the Canadian
// Forest Fire Weather Index System from gridded daily weather time
// series: the three moisture-code recurrences (FFMC, DMC, DC), the
// derived Initial Spread Index and Build-Up Index, and the combined
// Fire Weather Index, plus the snow-cover season detection used to
// choose start-up values for the recurrences.
//
// All gridded arrays have their time dimension leading, so a single
// day is a contiguous block of elements and a single cell's daily
// series strides through the array by the cell count. The moisture
// codes are genuinely order-dependent recurrences: for a fixed cell,
// day N's value depends on day N-1's and on nothing else, so the
// engine parallelizes across cells and never across days.
package fireweather

import (
	"fmt"
	"time"

	"github.com/ctessum/sparse"
)

// Version gives the version number.
const Version = "1.0.0"

// Codes holds one day's moisture codes for a single grid cell. It is
// the state carried by the recurrence from each day to the next.
type Codes struct {
	FFMC, DMC, DC float64
}

// Dataset holds co-registered daily weather grids. Every weather
// array must have the same shape, with time as the leading dimension
// and the remaining dimensions representing independent spatial
// cells. Inputs must already be in the units documented here; unit
// conversion is the caller's responsibility (see package indicator).
type Dataset struct {
	Temp *sparse.DenseArray // Noon temperature [°C]
	Rain *sparse.DenseArray // Rain over the previous 24 hours [mm]
	Wind *sparse.DenseArray // Noon wind speed [km/h]
	RH   *sparse.DenseArray // Noon relative humidity [%]
	Snow *sparse.DenseArray // Snow depth [m]; may be nil if season detection is not used

	// Lat holds the latitude of each cell [degrees, negative south],
	// with the same shape as one time step of the weather arrays.
	Lat *sparse.DenseArray

	// Dates holds the date of each time step. The engine requires a
	// contiguous daily cadence; gaps or reordering make the
	// "previous day" semantics of the recurrence ambiguous and are
	// rejected before any computation starts.
	Dates []time.Time
}

// Indices holds the computed code and index series, each with the
// same shape as the Dataset weather arrays.
type Indices struct {
	FFMC *sparse.DenseArray // Fine fuel moisture code [0-101]
	DMC  *sparse.DenseArray // Duff moisture code [>= 1]
	DC   *sparse.DenseArray // Drought code [>= 0]
	ISI  *sparse.DenseArray // Initial spread index
	BUI  *sparse.DenseArray // Build-up index
	FWI  *sparse.DenseArray // Fire weather index
}

// Steps returns the number of time steps in the dataset.
func (d *Dataset) Steps() int { return d.Temp.Shape[0] }

// Cells returns the number of spatial cells per time step.
func (d *Dataset) Cells() int {
	n := 1
	for _, s := range d.Temp.Shape[1:] {
		n *= s
	}
	return n
}

// sameShape reports whether two arrays have identical shapes.
func sameShape(a, b *sparse.DenseArray) bool {
	if len(a.Shape) != len(b.Shape) {
		return false
	}
	for i, s := range a.Shape {
		if b.Shape[i] != s {
			return false
		}
	}
	return true
}

// Check validates the dataset: co-registered array shapes, a
// latitude grid matching the spatial shape, and a contiguous,
// strictly daily time axis. It must pass before any scan starts.
func (d *Dataset) Check() error {
	if d.Temp == nil || d.Rain == nil || d.Wind == nil || d.RH == nil {
		return fmt.Errorf("fireweather: dataset is missing one or more weather variables")
	}
	if len(d.Temp.Shape) < 2 {
		return fmt.Errorf("fireweather: weather arrays must have a leading time dimension "+
			"plus at least one spatial dimension; got shape %v", d.Temp.Shape)
	}
	for name, a := range map[string]*sparse.DenseArray{
		"rain": d.Rain, "wind": d.Wind, "relative humidity": d.RH,
	} {
		if !sameShape(d.Temp, a) {
			return fmt.Errorf("fireweather: %s shape %v does not match temperature shape %v",
				name, a.Shape, d.Temp.Shape)
		}
	}
	if d.Snow != nil && !sameShape(d.Temp, d.Snow) {
		return fmt.Errorf("fireweather: snow depth shape %v does not match temperature shape %v",
			d.Snow.Shape, d.Temp.Shape)
	}
	if d.Lat == nil {
		return fmt.Errorf("fireweather: dataset is missing the latitude grid")
	}
	nLat := 1
	for _, s := range d.Lat.Shape {
		nLat *= s
	}
	if nLat != d.Cells() {
		return fmt.Errorf("fireweather: latitude grid has %d cells but the weather grids have %d",
			nLat, d.Cells())
	}
	if len(d.Dates) != d.Steps() {
		return fmt.Errorf("fireweather: %d dates for %d time steps", len(d.Dates), d.Steps())
	}
	for i := 1; i < len(d.Dates); i++ {
		if d.Dates[i].Sub(d.Dates[i-1]) != 24*time.Hour {
			return fmt.Errorf("fireweather: time axis must increase by exactly one day per step; "+
				"step %d is %v after step %d", i, d.Dates[i].Sub(d.Dates[i-1]), i-1)
		}
	}
	return nil
}

// Slice returns a view of time steps [t0, t1) as a new dataset for
// chunked evaluation. Running consecutive chunks while carrying the
// final Codes state between them gives results identical to a single
// run over the full span.
func (d *Dataset) Slice(t0, t1 int) (*Dataset, error) {
	if t0 < 0 || t1 > d.Steps() || t0 >= t1 {
		return nil, fmt.Errorf("fireweather: invalid time slice [%d, %d) of %d steps",
			t0, t1, d.Steps())
	}
	o := &Dataset{
		Temp:  sliceTime(d.Temp, t0, t1),
		Rain:  sliceTime(d.Rain, t0, t1),
		Wind:  sliceTime(d.Wind, t0, t1),
		RH:    sliceTime(d.RH, t0, t1),
		Lat:   d.Lat,
		Dates: d.Dates[t0:t1],
	}
	if d.Snow != nil {
		o.Snow = sliceTime(d.Snow, t0, t1)
	}
	return o, nil
}

// sliceTime copies time steps [t0, t1) of a time-leading array.
func sliceTime(a *sparse.DenseArray, t0, t1 int) *sparse.DenseArray {
	shape := append([]int{t1 - t0}, a.Shape[1:]...)
	o := sparse.ZerosDense(shape...)
	n := len(o.Elements) / (t1 - t0)
	copy(o.Elements, a.Elements[t0*n:t1*n])
	return o
}

// months returns the calendar month [1-12] of every time step.
func (d *Dataset) months() []int {
	o := make([]int, len(d.Dates))
	for i, t := range d.Dates {
		o[i] = int(t.Month())
	}
	return o
}
