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
	"os"
	"sort"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// NetCDF variable names for the input weather grids, following CF
// conventions. Each input must already be in the engine's working
// units (see Dataset); the units attribute is checked, not
// converted.
var inputVars = []struct {
	name, units string
	required    bool
}{
	{"tas", "degC", true},
	{"pr", "mm", true},
	{"sfcWind", "km/h", true},
	{"hurs", "%", true},
	{"snd", "m", false},
}

const timeUnitsFormat = "days since 2006-01-02"

// ReadDataset reads the daily weather grids from a NetCDF file. The
// file must contain the variables tas [degC], pr [mm], sfcWind
// [km/h], hurs [%], optionally snd [m], a latitude grid lat
// [degrees] over the spatial dimensions, and a time coordinate with
// a "days since" units attribute.
func ReadDataset(rw cdf.ReaderWriterAt) (*Dataset, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("fireweather: opening netcdf file: %v", err)
	}

	d := new(Dataset)
	for _, v := range inputVars {
		a, err := readFloat32Var(f, v.name)
		if err != nil {
			if !v.required {
				continue
			}
			return nil, err
		}
		if u, ok := f.Header.GetAttribute(v.name, "units").(string); ok && u != v.units {
			return nil, fmt.Errorf("fireweather: variable %s has units %q; want %q "+
				"(convert inputs before calculation)", v.name, u, v.units)
		}
		switch v.name {
		case "tas":
			d.Temp = a
		case "pr":
			d.Rain = a
		case "sfcWind":
			d.Wind = a
		case "hurs":
			d.RH = a
		case "snd":
			d.Snow = a
		}
	}

	if d.Lat, err = readFloat32Var(f, "lat"); err != nil {
		return nil, err
	}

	if d.Dates, err = readTime(f); err != nil {
		return nil, err
	}
	if err := d.Check(); err != nil {
		return nil, err
	}
	return d, nil
}

// readFloat32Var reads one float32 variable into a DenseArray.
func readFloat32Var(f *cdf.File, name string) (*sparse.DenseArray, error) {
	dims := f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("fireweather: netcdf file does not contain variable %s", name)
	}
	a := sparse.ZerosDense(dims...)
	tmp := make([]float32, len(a.Elements))
	r := f.Reader(name, nil, nil)
	if _, err := r.Read(tmp); err != nil {
		return nil, fmt.Errorf("fireweather: reading netcdf variable %s: %v", name, err)
	}
	for i, v := range tmp {
		a.Elements[i] = float64(v)
	}
	return a, nil
}

// readTime reads the time coordinate and resolves it to dates using
// its "days since" units attribute.
func readTime(f *cdf.File) ([]time.Time, error) {
	dims := f.Header.Lengths("time")
	if len(dims) == 0 {
		return nil, fmt.Errorf("fireweather: netcdf file does not contain a time coordinate")
	}
	units, ok := f.Header.GetAttribute("time", "units").(string)
	if !ok {
		return nil, fmt.Errorf("fireweather: time coordinate has no units attribute")
	}
	var y, m, day int
	if _, err := fmt.Sscanf(units, "days since %d-%d-%d", &y, &m, &day); err != nil {
		return nil, fmt.Errorf("fireweather: parsing time units %q: %v", units, err)
	}
	epoch := time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC)

	vals := make([]float64, dims[0])
	r := f.Reader("time", nil, nil)
	if _, err := r.Read(vals); err != nil {
		return nil, fmt.Errorf("fireweather: reading time coordinate: %v", err)
	}
	dates := make([]time.Time, len(vals))
	for i, v := range vals {
		dates[i] = epoch.AddDate(0, 0, int(v))
	}
	return dates, nil
}

// outputVar describes one computed series to be written.
type outputVar struct {
	name, description, units string
	data                     *sparse.DenseArray
}

// Write writes the computed indices to a NetCDF file, together with
// the latitude grid and time coordinate of the dataset they were
// computed from.
func (x *Indices) Write(w *os.File, d *Dataset) error {
	vars := []outputVar{
		{"ffmc", "fine fuel moisture code", "1", x.FFMC},
		{"dmc", "duff moisture code", "1", x.DMC},
		{"dc", "drought code", "1", x.DC},
		{"isi", "initial spread index", "1", x.ISI},
		{"bui", "build-up index", "1", x.BUI},
		{"fwi", "fire weather index", "1", x.FWI},
	}

	var dimNames []string
	switch len(x.FFMC.Shape) {
	case 2:
		dimNames = []string{"time", "cell"}
	case 3:
		dimNames = []string{"time", "y", "x"}
	default:
		return fmt.Errorf("fireweather: cannot write %d-dimensional output", len(x.FFMC.Shape))
	}
	h := cdf.NewHeader(dimNames, x.FFMC.Shape)
	h.AddAttribute("", "title", "Canadian Forest Fire Weather Index System indices")
	h.AddAttribute("", "comment", "computed by fireweather")

	// Sort the names so they write in the same order every time.
	sorted := make([]outputVar, len(vars))
	copy(sorted, vars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })

	for _, v := range sorted {
		h.AddVariable(v.name, dimNames, []float32{0})
		h.AddAttribute(v.name, "description", v.description)
		h.AddAttribute(v.name, "units", v.units)
	}
	h.AddVariable("lat", dimNames[1:], []float32{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("time", dimNames[:1], []float64{0})
	h.AddAttribute("time", "units", d.Dates[0].Format(timeUnitsFormat))
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("fireweather: creating netcdf file: %v", err)
	}
	for _, v := range sorted {
		if err := writeNCFVar(f, v.name, v.data); err != nil {
			return err
		}
	}
	if err := writeNCFVar(f, "lat", d.Lat); err != nil {
		return err
	}

	days := make([]float64, len(d.Dates))
	for i, date := range d.Dates {
		days[i] = date.Sub(d.Dates[0]).Hours() / 24
	}
	tEnd := f.Header.Lengths("time")
	tw := f.Writer("time", make([]int, len(tEnd)), tEnd)
	if _, err := tw.Write(days); err != nil {
		return fmt.Errorf("fireweather: writing time coordinate: %v", err)
	}
	return cdf.UpdateNumRecs(w)
}

// writeNCFVar writes one variable as float32.
func writeNCFVar(f *cdf.File, name string, data *sparse.DenseArray) error {
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("fireweather: variable %s dims give %d elements but array has %d",
			name, n, len(data.Elements))
	}
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	if _, err := w.Write(data32); err != nil {
		return fmt.Errorf("fireweather: writing netcdf variable %s: %v", name, err)
	}
	return nil
}
