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
	"testing"
)

// Worked example 1 from the reference report: noon temperature
// 17 °C, no rain, 25 km/h wind, 42 % relative humidity, previous
// FFMC 85.
func TestFineFuelMoistureCodeReference(t *testing.T) {
	const testTolerance = 0.01

	got := FineFuelMoistureCode(17, 0, 25, 42, 85)
	if math.Abs(got-87.693) > testTolerance {
		t.Errorf("FFMC = %g, want 87.693", got)
	}
}

func TestFineFuelMoistureCodeBounds(t *testing.T) {
	// Sweep a broad range of inputs; the output must stay inside
	// [0, 101] regardless.
	for _, temp := range []float64{-40, -1.1, 0, 17, 45} {
		for _, rain := range []float64{-5, 0, 0.5, 0.6, 10, 200} {
			for _, wind := range []float64{0, 10, 90} {
				for _, rh := range []float64{0, 42, 100} {
					for _, prev := range []float64{0, 50, 85, 101} {
						got := FineFuelMoistureCode(temp, rain, wind, rh, prev)
						if got < 0 || got > 101 {
							t.Fatalf("FFMC(%g, %g, %g, %g, %g) = %g out of [0, 101]",
								temp, rain, wind, rh, prev, got)
						}
					}
				}
			}
		}
	}
}

// Rain at or below 0.5 mm must not trigger the rain correction.
func TestFineFuelMoistureCodeRainThreshold(t *testing.T) {
	dry := FineFuelMoistureCode(17, 0, 25, 42, 85)
	atThresh := FineFuelMoistureCode(17, 0.5, 25, 42, 85)
	if dry != atThresh {
		t.Errorf("rain at threshold changed FFMC: %g != %g", atThresh, dry)
	}
	justOver := FineFuelMoistureCode(17, 0.51, 25, 42, 85)
	if justOver >= dry {
		t.Errorf("rain above threshold did not lower FFMC: %g >= %g", justOver, dry)
	}
	negative := FineFuelMoistureCode(17, -3, 25, 42, 85)
	if negative != dry {
		t.Errorf("negative rain treated as rain: %g != %g", negative, dry)
	}
}

// Worked example 2 from the reference report: previous DMC 6 at
// latitude 45.98° in April.
func TestDuffMoistureCodeReference(t *testing.T) {
	const testTolerance = 1e-6

	got, err := DuffMoistureCode(17, 0, 42, 4, 45.98, 6)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-8.5450511) > testTolerance {
		t.Errorf("DMC = %g, want 8.5450511", got)
	}
}

func TestDuffMoistureCodeFloor(t *testing.T) {
	// Heavy rain on a very low previous DMC must still give at
	// least 1.
	got, err := DuffMoistureCode(-10, 100, 100, 1, 45.98, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got < 1 {
		t.Errorf("DMC = %g, want >= 1", got)
	}
}

// The three-way rain branch selects different wetting curves at the
// documented previous-value thresholds; the result must be
// continuous-ish but, more importantly, always at least 1.
func TestDuffMoistureCodeRainBranches(t *testing.T) {
	for _, prev := range []float64{10, 33, 34, 65, 66, 120} {
		got, err := DuffMoistureCode(17, 10, 42, 6, 45.98, prev)
		if err != nil {
			t.Fatal(err)
		}
		if got < 1 || math.IsNaN(got) {
			t.Errorf("DMC(prev=%g) = %g", prev, got)
		}
		if got >= prev+3 { // wetting must not raise the code past the day's drying term
			t.Errorf("DMC(prev=%g) = %g: rain increased the code implausibly", prev, got)
		}
	}
}

// April at 45.98° N: potential evapotranspiration only, no rain.
func TestDroughtCodeReference(t *testing.T) {
	const testTolerance = 1e-6

	got, err := DroughtCode(17, 0, 4, 45.98, 15)
	if err != nil {
		t.Fatal(err)
	}
	// pe = (0.36*(17+2.8) + 0.9)/2 = 4.014
	if math.Abs(got-19.014) > testTolerance {
		t.Errorf("DC = %g, want 19.014", got)
	}
}

// With zero rain the drought code is a pure accumulation of
// potential evapotranspiration and must never decrease.
func TestDroughtCodeMonotoneWithoutRain(t *testing.T) {
	dc := 15.0
	for day := 0; day < 120; day++ {
		mth := 4 + day/30
		next, err := DroughtCode(21, 0, mth, 45.98, dc)
		if err != nil {
			t.Fatal(err)
		}
		if next < dc {
			t.Fatalf("day %d: DC decreased from %g to %g without rain", day, dc, next)
		}
		dc = next
	}
}

func TestDroughtCodeRainThreshold(t *testing.T) {
	dry, err := DroughtCode(17, 2.8, 4, 45.98, 300)
	if err != nil {
		t.Fatal(err)
	}
	noRain, err := DroughtCode(17, 0, 4, 45.98, 300)
	if err != nil {
		t.Fatal(err)
	}
	if dry != noRain {
		t.Errorf("rain at threshold changed DC: %g != %g", dry, noRain)
	}
	wet, err := DroughtCode(17, 20, 4, 45.98, 300)
	if err != nil {
		t.Fatal(err)
	}
	if wet >= noRain {
		t.Errorf("rain above threshold did not lower DC: %g >= %g", wet, noRain)
	}
}

func TestKernelsOutOfDomainLatitude(t *testing.T) {
	if _, err := DuffMoistureCode(17, 0, 42, 4, 91, 6); err == nil {
		t.Error("DuffMoistureCode: expected a domain error for latitude 91")
	}
	if _, err := DroughtCode(17, 0, 4, -91, 15); err == nil {
		t.Error("DroughtCode: expected a domain error for latitude -91")
	}
}

// Missing weather must poison the output, not crash.
func TestKernelsNaNPropagation(t *testing.T) {
	nan := math.NaN()
	if got := FineFuelMoistureCode(nan, 0, 25, 42, 85); !math.IsNaN(got) {
		t.Errorf("FFMC with NaN temperature = %g, want NaN", got)
	}
	if got := FineFuelMoistureCode(17, 0, 25, 42, nan); !math.IsNaN(got) {
		t.Errorf("FFMC with NaN previous value = %g, want NaN", got)
	}
	got, err := DuffMoistureCode(nan, 0, 42, 4, 45.98, 6)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(got) {
		t.Errorf("DMC with NaN temperature = %g, want NaN", got)
	}
	got, err = DroughtCode(17, 0, 4, 45.98, nan)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(got) {
		t.Errorf("DC with NaN previous value = %g, want NaN", got)
	}
}
