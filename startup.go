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
)

// Reference start-up parameters from the Global Fire Weather
// Database (GFWED) configuration.
const (
	// Start-up code values after a winter with significant snow
	// cover.
	ffmcStart = 85.0
	dmcStart  = 6.0
	dcStart   = 15.0

	// Dry-start multipliers applied to the number of days since
	// precipitation when the preceding winter lacked significant
	// snow cover.
	dmcDryStartFactor = 2.0
	dcDryStartFactor  = 5.0

	// precipThreshold [mm/day] is the minimum daily precipitation
	// that counts as rain when counting days since precipitation.
	precipThreshold = 1.0

	// tempThreshold [°C] defines the start and end of winter.
	tempThreshold = 6.0

	// snowDepthThreshold [m] is the minimum depth for there to be
	// considered snow on the ground.
	snowDepthThreshold = 0.01

	// minWinterSnowDepth [m] is the minimum mean mid-winter depth
	// for a winter to count as having had substantial snow cover.
	minWinterSnowDepth = 0.1

	// minSnowDayFrac is the minimum fraction of mid-winter days
	// with snow on the ground for a winter to count as having had
	// substantial snow cover.
	minSnowDayFrac = 0.75
)

// DefaultCodes is the moisture-code state assigned at the start of a
// fire season following a winter with significant snow cover.
var DefaultCodes = Codes{FFMC: ffmcStart, DMC: dmcStart, DC: dcStart}

// A StartupPolicy chooses the seed moisture codes for the first day
// of a detected fire season from the snow-cover classification of
// the preceding winter and the number of days since the last
// precipitation. The exact dry-start trigger varies between
// published configurations, so it is pluggable rather than fixed.
type StartupPolicy interface {
	Startup(significantSnow bool, daysSincePrecip float64) Codes
}

// GFWEDStartup is the reference start-up policy: the wet-winter
// constants after a winter with significant snow cover, and
// otherwise a drier start with DMC and DC scaled from the number of
// days since precipitation. FFMC always starts at 85.
type GFWEDStartup struct{}

// Startup implements StartupPolicy.
func (GFWEDStartup) Startup(significantSnow bool, daysSincePrecip float64) Codes {
	if significantSnow {
		return DefaultCodes
	}
	return Codes{
		FFMC: ffmcStart,
		DMC:  dmcDryStartFactor * daysSincePrecip,
		DC:   dcDryStartFactor * daysSincePrecip,
	}
}

// DaysSincePrecip counts the consecutive days strictly before time
// step t with precipitation below precipThreshold in cell c.
func (d *Dataset) DaysSincePrecip(c, t int) int {
	nCells := d.Cells()
	n := 0
	for tt := t - 1; tt >= 0; tt-- {
		if d.Rain.Elements[tt*nCells+c] >= precipThreshold {
			break
		}
		n++
	}
	return n
}

// StartupCodes derives one seed state per cell for the season whose
// snow-cover classification and start days are given as single-year
// rows (see SignificantSnowCover and SnowFreeStart). startDay maps
// day-of-year values back to time-step indices through the first
// date of the dataset's matching year; cells with a NaN start day
// fall back to DefaultCodes.
func (d *Dataset) StartupCodes(significantSnow, startDay []float64, policy StartupPolicy) ([]Codes, error) {
	nCells := d.Cells()
	if len(significantSnow) != nCells || len(startDay) != nCells {
		return nil, fmt.Errorf("fireweather: snow classification has %d cells and start days %d; want %d",
			len(significantSnow), len(startDay), nCells)
	}
	o := make([]Codes, nCells)
	for c := range o {
		if math.IsNaN(startDay[c]) {
			o[c] = DefaultCodes
			continue
		}
		t := d.stepForYearDay(int(startDay[c]))
		if t < 0 {
			o[c] = DefaultCodes
			continue
		}
		o[c] = policy.Startup(significantSnow[c] == 1, float64(d.DaysSincePrecip(c, t)))
	}
	return o, nil
}

// stepForYearDay returns the first time step falling on the given
// day-of-year, or -1 if the dataset does not cover it.
func (d *Dataset) stepForYearDay(doy int) int {
	for t, date := range d.Dates {
		if date.YearDay() == doy {
			return t
		}
	}
	return -1
}
