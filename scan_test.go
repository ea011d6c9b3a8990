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
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/ctessum/sparse"
)

// testDataset builds a small synthetic dataset with pseudo-random
// but reproducible weather: nSteps days over a 2x2 grid straddling
// the equator.
func testDataset(nSteps int, start time.Time) *Dataset {
	rng := rand.New(rand.NewSource(1))
	shape := []int{nSteps, 2, 2}
	d := &Dataset{
		Temp: sparse.ZerosDense(shape...),
		Rain: sparse.ZerosDense(shape...),
		Wind: sparse.ZerosDense(shape...),
		RH:   sparse.ZerosDense(shape...),
		Snow: sparse.ZerosDense(shape...),
		Lat:  sparse.ZerosDense(2, 2),
	}
	copy(d.Lat.Elements, []float64{45.98, 60, -33, -45})
	for i := range d.Temp.Elements {
		d.Temp.Elements[i] = 5 + 20*rng.Float64()
		if rng.Float64() < 0.2 {
			d.Rain.Elements[i] = 15 * rng.Float64()
		}
		d.Wind.Elements[i] = 30 * rng.Float64()
		d.RH.Elements[i] = 20 + 70*rng.Float64()
	}
	d.Dates = make([]time.Time, nSteps)
	for t := range d.Dates {
		d.Dates[t] = start.AddDate(0, 0, t)
	}
	return d
}

func TestCalculateBounds(t *testing.T) {
	d := testDataset(365, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC))
	out, final, err := d.Calculate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(final) != 4 {
		t.Fatalf("got %d final states, want 4", len(final))
	}
	for i := range out.FFMC.Elements {
		if v := out.FFMC.Elements[i]; v < 0 || v > 101 {
			t.Fatalf("FFMC element %d = %g out of [0, 101]", i, v)
		}
		if v := out.DMC.Elements[i]; v < 1 {
			t.Fatalf("DMC element %d = %g, want >= 1", i, v)
		}
		if v := out.DC.Elements[i]; v < 0 {
			t.Fatalf("DC element %d = %g, want >= 0", i, v)
		}
		if v := out.BUI.Elements[i]; v < 0 {
			t.Fatalf("BUI element %d = %g, want >= 0", i, v)
		}
	}
}

// The recurrence must not be commutative across days: permuting the
// time order of the inputs changes the result.
func TestCalculateOrderSensitivity(t *testing.T) {
	d := testDataset(60, time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC))
	out1, _, err := d.Calculate(nil)
	if err != nil {
		t.Fatal(err)
	}

	// Reverse the days (keeping the dates themselves so that the
	// time axis still validates).
	rev := testDataset(60, time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC))
	n := rev.Cells()
	for _, a := range []*sparse.DenseArray{rev.Temp, rev.Rain, rev.Wind, rev.RH} {
		for t0, t1 := 0, 59; t0 < t1; t0, t1 = t0+1, t1-1 {
			for c := 0; c < n; c++ {
				a.Elements[t0*n+c], a.Elements[t1*n+c] = a.Elements[t1*n+c], a.Elements[t0*n+c]
			}
		}
	}
	out2, _, err := rev.Calculate(nil)
	if err != nil {
		t.Fatal(err)
	}

	same := true
	for i := range out1.FFMC.Elements {
		if out1.FFMC.Elements[i] != out2.FFMC.Elements[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("reversing the day order left the FFMC series unchanged; the scan is not order-dependent")
	}
}

// Splitting the time axis in two and carrying the final state into
// the second chunk must reproduce the single full run exactly.
func TestCalculateChunkComposability(t *testing.T) {
	d := testDataset(200, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC))
	full, _, err := d.Calculate(nil)
	if err != nil {
		t.Fatal(err)
	}

	first, err := d.Slice(0, 90)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.Slice(90, 200)
	if err != nil {
		t.Fatal(err)
	}
	out1, carry, err := first.Calculate(nil)
	if err != nil {
		t.Fatal(err)
	}
	out2, _, err := second.Calculate(carry)
	if err != nil {
		t.Fatal(err)
	}

	n := d.Cells()
	check := func(name string, fullArr, a1, a2 *sparse.DenseArray) {
		for t0 := 0; t0 < 90; t0++ {
			for c := 0; c < n; c++ {
				if fullArr.Elements[t0*n+c] != a1.Elements[t0*n+c] {
					t.Fatalf("%s: chunk 1 diverges at step %d cell %d", name, t0, c)
				}
			}
		}
		for t0 := 90; t0 < 200; t0++ {
			for c := 0; c < n; c++ {
				if fullArr.Elements[t0*n+c] != a2.Elements[(t0-90)*n+c] {
					t.Fatalf("%s: chunk 2 diverges at step %d cell %d", name, t0, c)
				}
			}
		}
	}
	check("FFMC", full.FFMC, out1.FFMC, out2.FFMC)
	check("DMC", full.DMC, out1.DMC, out2.DMC)
	check("DC", full.DC, out1.DC, out2.DC)
	check("FWI", full.FWI, out1.FWI, out2.FWI)
}

func TestCalculateGappedDates(t *testing.T) {
	d := testDataset(30, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC))
	d.Dates[20] = d.Dates[20].AddDate(0, 0, 3) // introduce a gap
	if _, _, err := d.Calculate(nil); err == nil {
		t.Error("expected an error for a gapped time axis")
	}
}

// A NaN weather value poisons that cell's series from that day on,
// and must not affect other cells.
func TestCalculateNaNPoisoning(t *testing.T) {
	d := testDataset(30, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC))
	n := d.Cells()
	d.Temp.Elements[10*n+0] = math.NaN() // cell 0, day 10
	out, _, err := d.Calculate(nil)
	if err != nil {
		t.Fatal(err)
	}
	for step := 0; step < 10; step++ {
		if math.IsNaN(out.FFMC.Elements[step*n+0]) {
			t.Fatalf("step %d: FFMC is NaN before the missing day", step)
		}
	}
	for step := 10; step < 30; step++ {
		if !math.IsNaN(out.FFMC.Elements[step*n+0]) {
			t.Fatalf("step %d: FFMC recovered after a missing day", step)
		}
	}
	for step := 0; step < 30; step++ {
		if math.IsNaN(out.FFMC.Elements[step*n+1]) {
			t.Fatalf("step %d: missing data leaked into a neighboring cell", step)
		}
	}
}

// The single-code drivers must agree with the combined pipeline.
func TestScanSingleCodes(t *testing.T) {
	d := testDataset(90, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC))
	out, _, err := d.Calculate(nil)
	if err != nil {
		t.Fatal(err)
	}

	ffmc, _, err := d.ScanFFMC(d.seedSlice(ffmcStart))
	if err != nil {
		t.Fatal(err)
	}
	dmc, _, err := d.ScanDMC(d.seedSlice(dmcStart))
	if err != nil {
		t.Fatal(err)
	}
	dc, _, err := d.ScanDC(d.seedSlice(dcStart))
	if err != nil {
		t.Fatal(err)
	}
	for i := range out.FFMC.Elements {
		if ffmc.Elements[i] != out.FFMC.Elements[i] {
			t.Fatalf("element %d: ScanFFMC = %g, Calculate = %g", i, ffmc.Elements[i], out.FFMC.Elements[i])
		}
		if dmc.Elements[i] != out.DMC.Elements[i] {
			t.Fatalf("element %d: ScanDMC = %g, Calculate = %g", i, dmc.Elements[i], out.DMC.Elements[i])
		}
		if dc.Elements[i] != out.DC.Elements[i] {
			t.Fatalf("element %d: ScanDC = %g, Calculate = %g", i, dc.Elements[i], out.DC.Elements[i])
		}
	}
}
