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

package fireweather

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// The composite indices are stateless elementwise combinations of
// already-computed codes; unlike the moisture-code recurrences they
// carry no memory and may be evaluated in any order.

// InitialSpreadIndex combines noon wind speed w [km/h] with the fine
// fuel moisture code.
func InitialSpreadIndex(w, ffmc float64) float64 {
	mo := 147.2 * (101.0 - ffmc) / (59.5 + ffmc)                        // Eq. 1
	ff := 19.115 * math.Exp(mo*-0.1386) * (1.0 + math.Pow(mo, 5.31)/49300000.0) // Eq. 25
	return ff * math.Exp(0.05039*w) // Eq. 26
}

// BuildUpIndex combines the duff moisture code and the drought code.
// The result is never negative.
func BuildUpIndex(dmc, dc float64) float64 {
	var bui float64
	if dmc <= 0.4*dc {
		bui = (0.8 * dc * dmc) / (dmc + 0.4*dc) // Eq. 27a
	} else {
		bui = dmc - (1.0-0.8*dc/(dmc+0.4*dc))*(0.92+math.Pow(0.0114*dmc, 1.7)) // Eq. 27b
	}
	if bui < 0.0 {
		bui = 0.0
	}
	return bui
}

// FireWeatherIndex combines the initial spread index and the
// build-up index.
func FireWeatherIndex(isi, bui float64) float64 {
	var bb float64
	if bui <= 80.0 {
		bb = 0.1 * isi * (0.626*math.Pow(bui, 0.809) + 2.0) // Eq. 28a
	} else {
		bb = 0.1 * isi * (1000.0 / (25.0 + 108.64/math.Exp(0.023*bui))) // Eq. 28b
	}
	if bb <= 1.0 {
		return bb // Eq. 30a
	}
	return math.Exp(2.72 * math.Pow(0.434*math.Log(bb), 0.647)) // Eq. 30b
}

// elementwise applies f to corresponding elements of a and b,
// returning a new array of the same shape.
func elementwise(a, b *sparse.DenseArray, f func(x, y float64) float64) (*sparse.DenseArray, error) {
	if !sameShape(a, b) {
		return nil, fmt.Errorf("fireweather: mismatched array shapes %v and %v", a.Shape, b.Shape)
	}
	o := sparse.ZerosDense(a.Shape...)
	for i, x := range a.Elements {
		o.Elements[i] = f(x, b.Elements[i])
	}
	return o, nil
}

// InitialSpreadIndexArray is the elementwise form of
// InitialSpreadIndex over wind speed and FFMC grids.
func InitialSpreadIndexArray(w, ffmc *sparse.DenseArray) (*sparse.DenseArray, error) {
	return elementwise(w, ffmc, InitialSpreadIndex)
}

// BuildUpIndexArray is the elementwise form of BuildUpIndex over DMC
// and DC grids.
func BuildUpIndexArray(dmc, dc *sparse.DenseArray) (*sparse.DenseArray, error) {
	return elementwise(dmc, dc, BuildUpIndex)
}

// FireWeatherIndexArray is the elementwise form of FireWeatherIndex
// over ISI and BUI grids.
func FireWeatherIndexArray(isi, bui *sparse.DenseArray) (*sparse.DenseArray, error) {
	return elementwise(isi, bui, FireWeatherIndex)
}
