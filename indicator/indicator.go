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

// Package indicator wraps computed climate fields with unit
// handling, CF-style metadata, and a missing-data masking policy.
// The index engine itself works in fixed units and refuses
// mismatched input; this package is the layer that converts
// arbitrary-but-convertible input units to the engine's working
// units and decorates engine output for downstream consumers.
package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// knownUnit relates a unit symbol to the engine's base unit for its
// dimension: base = scale*value + offset. Dimension compatibility is
// tracked with unit.Dimensions so that, for example, a snow depth in
// kelvin is rejected rather than silently scaled.
type knownUnit struct {
	scale, offset float64
	dims          unit.Dimensions
}

var (
	dimless  = unit.Dimless
	length   = unit.Dimensions{unit.LengthDim: 1}
	speed    = unit.Dimensions{unit.LengthDim: 1, unit.TimeDim: -1}
	tempDim  = unit.Dimensions{unit.TemperatureDim: 1}
	rainRate = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: -2, unit.TimeDim: -1}
)

// Base units per dimension are the engine's working units: degC for
// temperature, m for depth, km/h for wind speed, mm/day for
// precipitation rate, and dimensionless percent for humidity.
var knownUnits = map[string]knownUnit{
	"1": {1, 0, dimless},
	"%": {1, 0, dimless},

	"m":  {1, 0, length},
	"cm": {0.01, 0, length},
	"mm": {0.001, 0, length},

	"degC": {1, 0, tempDim},
	"K":    {1, -273.15, tempDim},

	"km/h": {1, 0, speed},
	"m/s":  {3.6, 0, speed},

	// Precipitation flux; 1 kg m-2 s-1 is 1 mm/s of water.
	"mm/day":     {1, 0, rainRate},
	"mm/d":       {1, 0, rainRate},
	"kg m-2 s-1": {86400, 0, rainRate},
}

// Convert converts data from one unit symbol to another, returning a
// new array. Units with different physical dimensions are an error.
func Convert(data *sparse.DenseArray, from, to string) (*sparse.DenseArray, error) {
	f, t, err := lookupPair(from, to)
	if err != nil {
		return nil, err
	}
	o := sparse.ZerosDense(data.Shape...)
	for i, v := range data.Elements {
		base := f.scale*v + f.offset
		o.Elements[i] = (base - t.offset) / t.scale
	}
	return o, nil
}

// CheckUnits verifies that from can be converted to to.
func CheckUnits(from, to string) error {
	_, _, err := lookupPair(from, to)
	return err
}

func lookupPair(from, to string) (f, t knownUnit, err error) {
	f, ok := knownUnits[from]
	if !ok {
		return f, t, fmt.Errorf("indicator: unknown units %q", from)
	}
	t, ok = knownUnits[to]
	if !ok {
		return f, t, fmt.Errorf("indicator: unknown units %q", to)
	}
	if !f.dims.Matches(t.dims) {
		return f, t, fmt.Errorf("indicator: cannot convert %q to %q: incompatible dimensions %v and %v",
			from, to, f.dims, t.dims)
	}
	return f, t, nil
}

// MaskMissing applies the missing-data policy to a time-leading
// array: any cell whose fraction of NaN days exceeds maxFrac has its
// entire series masked with NaN. A moisture-code recurrence cannot
// recover alignment after a gap, so partial series beyond the
// tolerance are discarded whole.
func MaskMissing(data *sparse.DenseArray, maxFrac float64) *sparse.DenseArray {
	nSteps := data.Shape[0]
	nCells := len(data.Elements) / nSteps
	o := sparse.ZerosDense(data.Shape...)
	copy(o.Elements, data.Elements)
	for c := 0; c < nCells; c++ {
		missing := 0
		for t := 0; t < nSteps; t++ {
			if math.IsNaN(data.Elements[t*nCells+c]) {
				missing++
			}
		}
		if float64(missing)/float64(nSteps) > maxFrac {
			for t := 0; t < nSteps; t++ {
				o.Elements[t*nCells+c] = math.NaN()
			}
		}
	}
	return o
}

// An Indicator describes one computed output variable and the
// CF-style metadata to attach to it.
type Indicator struct {
	// Identifier is the variable name, e.g. "fwi".
	Identifier string
	// Units is the output units string.
	Units string
	// StandardName and LongName follow CF conventions.
	StandardName string
	LongName     string
	// Description is a free-form summary of what the variable
	// measures.
	Description string
	// CellMethods records the temporal aggregation, e.g.
	// "time: point".
	CellMethods string

	// MissingFrac is the maximum tolerated fraction of missing
	// days per cell before the cell's whole series is masked.
	MissingFrac float64
}

// Attrs holds the metadata attributes attached to an output
// variable.
type Attrs map[string]string

// now is swapped out by tests.
var now = time.Now

// Decorate returns the metadata for one computation of the
// indicator, including a provenance line recording the call and its
// time. call describes the invocation, e.g. "fwi(tas, pr, ...)".
func (ind *Indicator) Decorate(call string) Attrs {
	a := Attrs{
		"units":       ind.Units,
		"description": ind.Description,
	}
	if ind.StandardName != "" {
		a["standard_name"] = ind.StandardName
	}
	if ind.LongName != "" {
		a["long_name"] = ind.LongName
	}
	if ind.CellMethods != "" {
		a["cell_methods"] = ind.CellMethods
	}
	a["history"] = fmt.Sprintf("%s: %s", now().Format("2006-01-02 15:04:05"), call)
	return a
}

// Mask applies the indicator's missing-data policy to a computed
// series.
func (ind *Indicator) Mask(data *sparse.DenseArray) *sparse.DenseArray {
	return MaskMissing(data, ind.MissingFrac)
}
