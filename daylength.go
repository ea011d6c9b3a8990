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
	"sort"
)

// Latitude band boundaries [degrees] for the day-length and
// day-length-factor tables. Bands are half-open intervals over
// ascending boundaries; a latitude exactly on an interior boundary
// belongs to the band above it.
var (
	dayLengthBounds       = []float64{-90, -30, -10, 10, 30, 90}
	dayLengthFactorBounds = []float64{-90, -15, 15, 90}
)

// Monthly average day lengths [hours] by latitude band, from the
// reference FWI System tables (Wang, Anderson and Suddaby, 2015).
var dayLengths = [5][12]float64{
	{11.5, 10.5, 9.2, 7.9, 6.8, 6.2, 6.5, 7.4, 8.7, 10, 11.2, 11.8},
	{10.1, 9.6, 9.1, 8.5, 8.1, 7.8, 7.9, 8.3, 8.9, 9.4, 9.9, 10.2},
	{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9},
	{7.9, 8.4, 8.9, 9.5, 9.9, 10.2, 10.1, 9.7, 9.1, 8.6, 8.1, 7.8},
	{6.5, 7.5, 9, 12.8, 13.9, 13.9, 12.4, 10.9, 9.4, 8, 7, 6},
}

// Monthly day-length factors by latitude band, from the GFWED code.
var dayLengthFactors = [3][12]float64{
	{6.4, 5.0, 2.4, 0.4, -1.6, -1.6, -1.6, -1.6, -1.6, 0.9, 3.8, 5.8},
	{1.39, 1.39, 1.39, 1.39, 1.39, 1.39, 1.39, 1.39, 1.39, 1.39, 1.39, 1.39},
	{-1.6, -1.6, -1.6, 0.9, 3.8, 5.8, 6.4, 5.0, 2.4, 0.4, -1.6, -1.6},
}

// latBand returns the index of the latitude band containing lat.
// Latitudes outside the table domain are an error rather than being
// silently clamped, except that +90 itself is assigned to the top
// band because the reference digitization is degenerate there.
func latBand(lat float64, bounds []float64) (int, error) {
	if lat < bounds[0] || lat > bounds[len(bounds)-1] {
		return 0, fmt.Errorf("fireweather: latitude %g° is outside the table domain [%g°, %g°]",
			lat, bounds[0], bounds[len(bounds)-1])
	}
	i := sort.SearchFloat64s(bounds, lat)
	if i < len(bounds) && bounds[i] == lat {
		// A value on a boundary belongs to the upper band.
		i++
	}
	if i > len(bounds)-1 {
		i = len(bounds) - 1 // lat == +90
	}
	return i - 1, nil
}

// DayLength returns the monthly average day lengths [hours] for the
// latitude band containing lat [degrees]. It is a pure function of
// its input.
func DayLength(lat float64) ([12]float64, error) {
	i, err := latBand(lat, dayLengthBounds)
	if err != nil {
		return [12]float64{}, err
	}
	return dayLengths[i], nil
}

// DayLengthFactor returns the monthly day-length factors for the
// latitude band containing lat [degrees].
func DayLengthFactor(lat float64) ([12]float64, error) {
	i, err := latBand(lat, dayLengthFactorBounds)
	if err != nil {
		return [12]float64{}, err
	}
	return dayLengthFactors[i], nil
}
