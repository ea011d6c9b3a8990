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
	"runtime"
	"sync"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/stat"
)

// Season detection classifies, per cell and per year, whether the
// winter had significant snow cover and when the fire season starts.
// Northern and southern hemisphere cells are in opposite seasonal
// phase, so each hemisphere evaluates different calendar-month
// windows; the window choice is single-sourced here and the
// run-length scan logic is shared by the snow and temperature
// variants.

// seasonWindow selects the hemisphere-specific evaluation windows.
type seasonWindow struct {
	// snowCover is the two-month mid-winter window over which snow
	// cover is classified.
	snowCover [2]int
	// scanStart and scanEnd bound (inclusive) the months scanned for
	// the start-of-season run.
	scanStart, scanEnd int
}

var (
	northernWindow = seasonWindow{snowCover: [2]int{1, 2}, scanStart: 1, scanEnd: 12}
	southernWindow = seasonWindow{snowCover: [2]int{7, 8}, scanStart: 7, scanEnd: 12}
)

// window returns the evaluation windows for a cell at the given
// latitude. The equator is treated as northern.
func window(lat float64) seasonWindow {
	if lat < 0 {
		return southernWindow
	}
	return northernWindow
}

// startupWindow is the run length, in days, of the condition that
// marks the start of the fire season.
const startupWindow = 3

// SnowCoverOptions holds the thresholds classifying winter snow
// cover.
type SnowCoverOptions struct {
	// MinSnowDayFrac is the minimum fraction of window days with
	// depth above DepthThreshold.
	MinSnowDayFrac float64
	// MinDepth [m] is the minimum mean depth over the window.
	MinDepth float64
	// DepthThreshold [m] is the depth above which a day counts as
	// snow covered.
	DepthThreshold float64
}

// DefaultSnowCoverOptions returns the reference GFWED thresholds.
func DefaultSnowCoverOptions() SnowCoverOptions {
	return SnowCoverOptions{
		MinSnowDayFrac: minSnowDayFrac,
		MinDepth:       minWinterSnowDepth,
		DepthThreshold: snowDepthThreshold,
	}
}

// years returns the distinct calendar years spanned by the dataset,
// in order, plus the year index of every time step.
func (d *Dataset) years() ([]int, []int) {
	y0 := d.Dates[0].Year()
	y1 := d.Dates[len(d.Dates)-1].Year()
	ys := make([]int, 0, y1-y0+1)
	for y := y0; y <= y1; y++ {
		ys = append(ys, y)
	}
	idx := make([]int, len(d.Dates))
	for t, date := range d.Dates {
		idx[t] = date.Year() - y0
	}
	return ys, idx
}

// annualShape returns the shape of a per-year, per-cell result
// array: the spatial shape of the dataset with a leading year
// dimension.
func (d *Dataset) annualShape(nYears int) []int {
	return append([]int{nYears}, d.Temp.Shape[1:]...)
}

// perCellAnnual runs f concurrently for every cell, passing the
// cell index and the T-length stride accessor for that cell's daily
// series, and collecting one value per cell per year into a
// [year, cell...] array.
func (d *Dataset) perCellAnnual(nYears int, f func(c int, out []float64)) *sparse.DenseArray {
	nCells := d.Cells()
	o := sparse.ZerosDense(d.annualShape(nYears)...)

	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			buf := make([]float64, nYears)
			for c := pp; c < nCells; c += nprocs {
				f(c, buf)
				for y := 0; y < nYears; y++ {
					o.Elements[y*nCells+c] = buf[y]
				}
			}
		}(pp)
	}
	wg.Wait()
	return o
}

// SignificantSnowCover classifies, for every cell and every year,
// whether the winter had significant snow cover: the mean depth over
// the hemisphere's mid-winter window must exceed o.MinDepth and the
// fraction of window days with depth above o.DepthThreshold must be
// at least o.MinSnowDayFrac. The result array has shape
// [year, cell...] with 1 for significant cover, 0 for not, and NaN
// for years with no window data.
func (d *Dataset) SignificantSnowCover(o SnowCoverOptions) (*sparse.DenseArray, error) {
	if err := d.Check(); err != nil {
		return nil, err
	}
	if d.Snow == nil {
		return nil, fmt.Errorf("fireweather: snow cover classification requires a snow depth grid")
	}
	years, yearIdx := d.years()
	nCells := d.Cells()
	months := d.months()

	out := d.perCellAnnual(len(years), func(c int, res []float64) {
		w := window(d.Lat.Elements[c])
		depths := make([][]float64, len(years))
		for t := 0; t < d.Steps(); t++ {
			if months[t] != w.snowCover[0] && months[t] != w.snowCover[1] {
				continue
			}
			y := yearIdx[t]
			depths[y] = append(depths[y], d.Snow.Elements[t*nCells+c])
		}
		for y := range res {
			if len(depths[y]) == 0 {
				res[y] = math.NaN()
				continue
			}
			covered := 0
			for _, snd := range depths[y] {
				if snd > o.DepthThreshold {
					covered++
				}
			}
			if stat.Mean(depths[y], nil) > o.MinDepth &&
				float64(covered) >= float64(len(depths[y]))*o.MinSnowDayFrac {
				res[y] = 1
			} else {
				res[y] = 0
			}
		}
	})
	return out, nil
}

// firstRunAnnual scans each cell's daily series within the
// hemisphere's scan window for the first run of startupWindow
// consecutive days satisfying cond, and reports, per year, the
// day-of-year on which the run completes (the first run day plus
// startupWindow-1), or NaN when no such run occurs.
func (d *Dataset) firstRunAnnual(cond func(i int) bool) *sparse.DenseArray {
	years, yearIdx := d.years()
	nCells := d.Cells()
	months := d.months()

	return d.perCellAnnual(len(years), func(c int, res []float64) {
		w := window(d.Lat.Elements[c])
		for y := range res {
			res[y] = math.NaN()
		}
		run := 0
		prevYear := -1
		for t := 0; t < d.Steps(); t++ {
			y := yearIdx[t]
			if y != prevYear {
				run = 0 // runs do not straddle the year boundary
				prevYear = y
			}
			if months[t] < w.scanStart || months[t] > w.scanEnd {
				run = 0
				continue
			}
			if !math.IsNaN(res[y]) {
				continue // already found this year's run
			}
			if cond(t*nCells + c) {
				run++
			} else {
				run = 0
			}
			if run == startupWindow {
				first := d.Dates[t-startupWindow+1].YearDay()
				res[y] = float64(first + startupWindow - 1)
			}
		}
	})
}

// SnowFreeStart returns, per cell and per year, the day-of-year at
// which snow depth has been below thresh [m] for startupWindow
// consecutive days, marking the start of the fire season. Northern
// cells are scanned over the full year, southern cells over
// July-December. Years with no qualifying run are NaN.
func (d *Dataset) SnowFreeStart(thresh float64) (*sparse.DenseArray, error) {
	if err := d.Check(); err != nil {
		return nil, err
	}
	if d.Snow == nil {
		return nil, fmt.Errorf("fireweather: snow-free start detection requires a snow depth grid")
	}
	return d.firstRunAnnual(func(i int) bool {
		return d.Snow.Elements[i] < thresh
	}), nil
}

// WarmStart returns, per cell and per year, the day-of-year at which
// mean temperature has been above thresh [°C] for startupWindow
// consecutive days, using the same hemisphere scan windows as
// SnowFreeStart.
func (d *Dataset) WarmStart(thresh float64) (*sparse.DenseArray, error) {
	if err := d.Check(); err != nil {
		return nil, err
	}
	return d.firstRunAnnual(func(i int) bool {
		return d.Temp.Elements[i] > thresh
	}), nil
}
