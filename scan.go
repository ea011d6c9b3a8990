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
	"runtime"
	"sync"

	"github.com/ctessum/sparse"
)

// The scan driver is the only stateful, order-sensitive loop in the
// engine: for each cell it folds the moisture-code kernels over the
// time axis, feeding each day's output to the next day as its
// "previous" value, while independent cells run concurrently on
// GOMAXPROCS workers striding the cell index. Each output element is
// written by exactly one worker.

// Calculate runs the full index pipeline: the three moisture-code
// recurrences followed by the initial spread, build-up, and fire
// weather indices. prev seeds day zero with each cell's carried
// state; if prev is nil, every cell starts from DefaultCodes
// (FFMC 85, DMC 6, DC 15). The returned slice holds the final state
// of every cell so that a subsequent chunk (see Slice) can continue
// the recurrence without drift.
func (d *Dataset) Calculate(prev []Codes) (*Indices, []Codes, error) {
	if err := d.Check(); err != nil {
		return nil, nil, err
	}
	nCells := d.Cells()
	if prev == nil {
		prev = make([]Codes, nCells)
		for i := range prev {
			prev[i] = DefaultCodes
		}
	}
	if len(prev) != nCells {
		return nil, nil, fmt.Errorf("fireweather: %d seed states for %d cells", len(prev), nCells)
	}

	o := &Indices{
		FFMC: sparse.ZerosDense(d.Temp.Shape...),
		DMC:  sparse.ZerosDense(d.Temp.Shape...),
		DC:   sparse.ZerosDense(d.Temp.Shape...),
		ISI:  sparse.ZerosDense(d.Temp.Shape...),
		BUI:  sparse.ZerosDense(d.Temp.Shape...),
		FWI:  sparse.ZerosDense(d.Temp.Shape...),
	}
	final := make([]Codes, nCells)
	months := d.months()
	nSteps := d.Steps()

	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	errs := make([]error, nprocs)
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for c := pp; c < nCells; c += nprocs {
				lat := d.Lat.Elements[c]
				el, err := DayLength(lat)
				if err != nil {
					errs[pp] = err
					return
				}
				fl, err := DayLengthFactor(lat)
				if err != nil {
					errs[pp] = err
					return
				}
				s := prev[c]
				for t := 0; t < nSteps; t++ {
					i := t*nCells + c
					temp := d.Temp.Elements[i]
					rain := d.Rain.Elements[i]
					wind := d.Wind.Elements[i]
					rh := d.RH.Elements[i]
					mth := months[t]

					s.FFMC = FineFuelMoistureCode(temp, rain, wind, rh, s.FFMC)
					s.DMC = duffMoistureCode(temp, rain, rh, mth, &el, s.DMC)
					s.DC = droughtCode(temp, rain, mth, &fl, s.DC)

					isi := InitialSpreadIndex(wind, s.FFMC)
					bui := BuildUpIndex(s.DMC, s.DC)

					o.FFMC.Elements[i] = s.FFMC
					o.DMC.Elements[i] = s.DMC
					o.DC.Elements[i] = s.DC
					o.ISI.Elements[i] = isi
					o.BUI.Elements[i] = bui
					o.FWI.Elements[i] = FireWeatherIndex(isi, bui)
				}
				final[c] = s
			}
		}(pp)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, nil, err
		}
	}
	return o, final, nil
}

// scanKernel folds one scalar recurrence over the time axis of the
// dataset for every cell. The kernel receives the element index of
// the day being computed and the cell's previous state, and returns
// the new state. prev has one seed value per cell and is not
// modified; the final state per cell is returned alongside the full
// series.
func (d *Dataset) scanKernel(prev []float64, kernel func(c, i, t int, prev float64) float64) (*sparse.DenseArray, []float64) {
	nCells := d.Cells()
	nSteps := d.Steps()
	o := sparse.ZerosDense(d.Temp.Shape...)
	final := make([]float64, nCells)

	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for c := pp; c < nCells; c += nprocs {
				s := prev[c]
				for t := 0; t < nSteps; t++ {
					i := t*nCells + c
					s = kernel(c, i, t, s)
					o.Elements[i] = s
				}
				final[c] = s
			}
		}(pp)
	}
	wg.Wait()
	return o, final
}

// seedSlice expands a scalar seed to one value per cell.
func (d *Dataset) seedSlice(seed float64) []float64 {
	o := make([]float64, d.Cells())
	for i := range o {
		o[i] = seed
	}
	return o
}

// ScanFFMC computes the fine fuel moisture code series alone. prev
// holds one seed value per cell.
func (d *Dataset) ScanFFMC(prev []float64) (*sparse.DenseArray, []float64, error) {
	if err := d.Check(); err != nil {
		return nil, nil, err
	}
	if len(prev) != d.Cells() {
		return nil, nil, fmt.Errorf("fireweather: %d seed values for %d cells", len(prev), d.Cells())
	}
	o, final := d.scanKernel(prev, func(c, i, t int, s float64) float64 {
		return FineFuelMoistureCode(d.Temp.Elements[i], d.Rain.Elements[i],
			d.Wind.Elements[i], d.RH.Elements[i], s)
	})
	return o, final, nil
}

// ScanDMC computes the duff moisture code series alone. prev holds
// one seed value per cell.
func (d *Dataset) ScanDMC(prev []float64) (*sparse.DenseArray, []float64, error) {
	if err := d.Check(); err != nil {
		return nil, nil, err
	}
	if len(prev) != d.Cells() {
		return nil, nil, fmt.Errorf("fireweather: %d seed values for %d cells", len(prev), d.Cells())
	}
	els, err := d.dayLengthRows(DayLength)
	if err != nil {
		return nil, nil, err
	}
	months := d.months()
	o, final := d.scanKernel(prev, func(c, i, t int, s float64) float64 {
		return duffMoistureCode(d.Temp.Elements[i], d.Rain.Elements[i],
			d.RH.Elements[i], months[t], els[c], s)
	})
	return o, final, nil
}

// ScanDC computes the drought code series alone. prev holds one seed
// value per cell.
func (d *Dataset) ScanDC(prev []float64) (*sparse.DenseArray, []float64, error) {
	if err := d.Check(); err != nil {
		return nil, nil, err
	}
	if len(prev) != d.Cells() {
		return nil, nil, fmt.Errorf("fireweather: %d seed values for %d cells", len(prev), d.Cells())
	}
	fls, err := d.dayLengthRows(DayLengthFactor)
	if err != nil {
		return nil, nil, err
	}
	months := d.months()
	o, final := d.scanKernel(prev, func(c, i, t int, s float64) float64 {
		return droughtCode(d.Temp.Elements[i], d.Rain.Elements[i], months[t], fls[c], s)
	})
	return o, final, nil
}

// dayLengthRows resolves the monthly table row of every cell up
// front so that the per-day kernel is a pure array lookup.
func (d *Dataset) dayLengthRows(lookup func(float64) ([12]float64, error)) ([]*[12]float64, error) {
	o := make([]*[12]float64, d.Cells())
	for c := range o {
		row, err := lookup(d.Lat.Elements[c])
		if err != nil {
			return nil, err
		}
		o[c] = &row
	}
	return o, nil
}
