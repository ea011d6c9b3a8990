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

// The three moisture-code recurrences of the Canadian Forest Fire
// Weather Index System, from:
// Y. Wang, K.R. Anderson, and R.M. Suddaby, Updated source code for
// calculating fire danger indices in the Canadian Forest Fire Weather
// Index System, Information Report NOR-X-424, 2015.
// Equation numbers in the comments refer to that report.

package fireweather

import "math"

// Rain thresholds [mm/24h] below which a day is treated as rainless
// by each moisture code.
const (
	ffmcRainThreshold = 0.5
	dmcRainThreshold  = 1.5
	dcRainThreshold   = 2.8
)

// FineFuelMoistureCode computes today's fine fuel moisture code from
// noon temperature t [°C], rain p [mm/24h], wind speed w [km/h],
// relative humidity h [%], and yesterday's code ffmc0.
// The result is clamped to [0, 101].
func FineFuelMoistureCode(t, p, w, h, ffmc0 float64) float64 {
	mo := (147.2 * (101.0 - ffmc0)) / (59.5 + ffmc0) // Eq. 1
	if p > ffmcRainThreshold {
		rf := p - ffmcRainThreshold // Eq. 2
		if mo > 150.0 {
			mo = (mo + 42.5*rf*math.Exp(-100.0/(251.0-mo))*(1.0-math.Exp(-6.93/rf))) +
				0.0015*(mo-150.0)*(mo-150.0)*math.Sqrt(rf) // Eq. 3b
		} else {
			mo = mo + 42.5*rf*math.Exp(-100.0/(251.0-mo))*(1.0-math.Exp(-6.93/rf)) // Eq. 3a
		}
		if mo > 250.0 {
			mo = 250.0
		}
	}

	ed := 0.942*math.Pow(h, 0.679) + 11.0*math.Exp((h-100.0)/10.0) +
		0.18*(21.1-t)*(1.0-1.0/math.Exp(0.1150*h)) // Eq. 4

	var m float64
	switch {
	case mo < ed:
		ew := 0.618*math.Pow(h, 0.753) + 10.0*math.Exp((h-100.0)/10.0) +
			0.18*(21.1-t)*(1.0-1.0/math.Exp(0.115*h)) // Eq. 5
		if mo <= ew {
			kl := 0.424*(1.0-math.Pow((100.0-h)/100.0, 1.7)) +
				0.0694*math.Sqrt(w)*(1.0-math.Pow((100.0-h)/100.0, 8)) // Eq. 7a
			kw := kl * 0.581 * math.Exp(0.0365*t) // Eq. 7b
			m = ew - (ew-mo)/math.Pow(10.0, kw)   // Eq. 9
		} else {
			m = mo
		}
	case mo == ed:
		m = mo
	default:
		kl := 0.424*(1.0-math.Pow(h/100.0, 1.7)) +
			0.0694*math.Sqrt(w)*(1.0-math.Pow(h/100.0, 8)) // Eq. 6a
		kw := kl * 0.581 * math.Exp(0.0365*t) // Eq. 6b
		m = ed + (mo-ed)/math.Pow(10.0, kw)   // Eq. 8
	}

	ffmc := (59.5 * (250.0 - m)) / (147.2 + m) // Eq. 10
	if ffmc > 101.0 {
		ffmc = 101.0
	}
	if ffmc <= 0.0 {
		ffmc = 0.0
	}
	return ffmc
}

// duffMoistureCode is the DMC kernel with the day-length row already
// resolved; el is the monthly day length [hours] for the cell's
// latitude band and mth is the calendar month [1-12].
func duffMoistureCode(t, p, h float64, mth int, el *[12]float64, dmc0 float64) float64 {
	if t < -1.1 {
		t = -1.1
	}
	rk := 1.894 * (t + 1.1) * (100.0 - h) * (el[mth-1] * 0.0001) // Eqs. 16 and 17

	var pr float64
	if p > dmcRainThreshold {
		ra := p
		rw := 0.92*ra - 1.27                        // Eq. 11
		wmi := 20.0 + 280.0/math.Exp(0.023*dmc0)    // Eq. 12
		var b float64
		switch {
		case dmc0 <= 33.0:
			b = 100.0 / (0.5 + 0.3*dmc0) // Eq. 13a
		case dmc0 <= 65.0:
			b = 14.0 - 1.3*math.Log(dmc0) // Eq. 13b
		default:
			b = 6.2*math.Log(dmc0) - 17.2 // Eq. 13c
		}
		wmr := wmi + (1000.0*rw)/(48.77+b*rw)       // Eq. 14
		pr = 43.43 * (5.6348 - math.Log(wmr-20.0))  // Eq. 15
	} else {
		pr = dmc0
	}
	if pr < 0.0 {
		pr = 0.0
	}
	dmc := pr + rk
	if dmc <= 1.0 {
		dmc = 1.0
	}
	return dmc
}

// DuffMoistureCode computes today's duff moisture code from noon
// temperature t [°C], rain p [mm/24h], relative humidity h [%], the
// calendar month mth [1-12], latitude lat [degrees], and yesterday's
// code dmc0. The result is never less than 1.
func DuffMoistureCode(t, p, h float64, mth int, lat, dmc0 float64) (float64, error) {
	el, err := DayLength(lat)
	if err != nil {
		return 0, err
	}
	return duffMoistureCode(t, p, h, mth, &el, dmc0), nil
}

// droughtCode is the DC kernel with the day-length-factor row already
// resolved; fl is the monthly day-length factor for the cell's
// latitude band and mth is the calendar month [1-12].
func droughtCode(t, p float64, mth int, fl *[12]float64, dc0 float64) float64 {
	if t < -2.8 {
		t = -2.8
	}
	pe := (0.36*(t+2.8) + fl[mth-1]) / 2.0 // Eq. 22
	if pe <= 0.0 {
		pe = 0.0
	}

	if p > dcRainThreshold {
		ra := p
		rw := 0.83*ra - 1.27                               // Eq. 18
		smi := 800.0 * math.Exp(-dc0/400.0)                // Eq. 19
		dr := dc0 - 400.0*math.Log(1.0+(3.937*rw)/smi)     // Eqs. 20 and 21
		if dr > 0.0 {
			return dr + pe
		}
		return pe
	}
	return dc0 + pe
}

// DroughtCode computes today's drought code from noon temperature t
// [°C], rain p [mm/24h], the calendar month mth [1-12], latitude lat
// [degrees], and yesterday's code dc0.
func DroughtCode(t, p float64, mth int, lat, dc0 float64) (float64, error) {
	fl, err := DayLengthFactor(lat)
	if err != nil {
		return 0, err
	}
	return droughtCode(t, p, mth, &fl, dc0), nil
}
