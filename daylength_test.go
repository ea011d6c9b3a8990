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

import "testing"

// Pin the boundary-inclusion convention of the band lookup: a
// latitude exactly on an interior boundary belongs to the upper
// band.
func TestDayLengthBoundaries(t *testing.T) {
	tests := []struct {
		lat  float64
		band int
	}{
		{-90, 0},
		{-45, 0},
		{-30, 1}, // boundary value goes to the upper band
		{-29.999, 1},
		{-10, 2},
		{0, 2},
		{10, 3},
		{29.999, 3},
		{30, 4},
		{45.98, 4},
		{90, 4}, // top boundary closed
	}
	for _, test := range tests {
		got, err := DayLength(test.lat)
		if err != nil {
			t.Fatalf("DayLength(%g): %v", test.lat, err)
		}
		if got != dayLengths[test.band] {
			t.Errorf("DayLength(%g): got band row %v, want row %d (%v)",
				test.lat, got, test.band, dayLengths[test.band])
		}
	}
}

func TestDayLengthFactorBoundaries(t *testing.T) {
	tests := []struct {
		lat  float64
		band int
	}{
		{-90, 0},
		{-15.001, 0},
		{-15, 1}, // boundary value goes to the upper band
		{0, 1},
		{14.999, 1},
		{15, 2},
		{45.98, 2},
		{90, 2},
	}
	for _, test := range tests {
		got, err := DayLengthFactor(test.lat)
		if err != nil {
			t.Fatalf("DayLengthFactor(%g): %v", test.lat, err)
		}
		if got != dayLengthFactors[test.band] {
			t.Errorf("DayLengthFactor(%g): got band row %v, want row %d",
				test.lat, got, test.band)
		}
	}
}

func TestDayLengthOutOfDomain(t *testing.T) {
	for _, lat := range []float64{-90.001, 90.001, -1000, 1000} {
		if _, err := DayLength(lat); err == nil {
			t.Errorf("DayLength(%g): expected a domain error", lat)
		}
		if _, err := DayLengthFactor(lat); err == nil {
			t.Errorf("DayLengthFactor(%g): expected a domain error", lat)
		}
	}
}

// The lookups are pure functions: repeated calls with the same
// latitude must return identical rows.
func TestDayLengthPure(t *testing.T) {
	a, err := DayLength(45.98)
	if err != nil {
		t.Fatal(err)
	}
	b, err := DayLength(45.98)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("DayLength is not pure: %v != %v", a, b)
	}
}
