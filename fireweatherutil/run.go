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

package fireweatherutil

import (
	"fmt"
	"os"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/qwhelan/fireweather"
	"github.com/qwhelan/fireweather/subset"
)

// SeasonConfig holds the thresholds for fire season detection.
type SeasonConfig struct {
	// MinSnowDayFrac is the minimum fraction of mid-winter days
	// with snow on the ground for a winter to count as having
	// significant snow cover.
	MinSnowDayFrac float64
	// MinWinterSnowDepth [m] is the minimum mean mid-winter snow
	// depth for a winter to count as having significant snow cover.
	MinWinterSnowDepth float64
	// SnowDepthThreshold [m] is the snow depth above which a day
	// counts as snow covered.
	SnowDepthThreshold float64
	// TempThreshold [degC] is the noon temperature that must be
	// sustained for the fire season to start when the input has no
	// snow depth grid.
	TempThreshold float64
}

// RunConfig holds the configuration for one calculation run.
type RunConfig struct {
	// InputFile is the path to the NetCDF file holding the daily
	// weather grids.
	InputFile string
	// OutputFile is the path of the NetCDF file to write the
	// computed indices to.
	OutputFile string
	// Startup specifies whether to detect the fire season start and
	// seed the moisture codes from it.
	Startup bool
	// ChunkDays is the number of days to process per chunk, with the
	// moisture-code state carried between chunks. Zero or a value
	// covering the whole span processes it at once; the result is the
	// same either way.
	ChunkDays int
	// Season holds the season detection thresholds.
	Season SeasonConfig
}

// Run reads the daily weather grids from cfg.InputFile, computes the
// six Fire Weather Index System indices for every cell and day, and
// writes them to cfg.OutputFile.
func Run(cfg RunConfig) error {
	logger.Infof("reading weather grids from %s", cfg.InputFile)
	r, err := os.Open(cfg.InputFile)
	if err != nil {
		return fmt.Errorf("fireweather: opening input file: %v", err)
	}
	defer r.Close()
	d, err := fireweather.ReadDataset(r)
	if err != nil {
		return err
	}

	var prev []fireweather.Codes
	if cfg.Startup {
		if prev, err = startupCodes(d, cfg.Season); err != nil {
			return err
		}
	}

	logger.Infof("computing indices for %d cells over %d days", d.Cells(), d.Steps())
	x, err := calculate(d, prev, cfg.ChunkDays)
	if err != nil {
		return err
	}

	logger.Infof("writing indices to %s", cfg.OutputFile)
	w, err := os.Create(cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("fireweather: creating output file: %v", err)
	}
	if err := x.Write(w, d); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// calculate runs the index pipeline, splitting the time axis into
// chunkDays-sized chunks and carrying the moisture-code state
// between them when chunkDays is positive and smaller than the span.
func calculate(d *fireweather.Dataset, prev []fireweather.Codes, chunkDays int) (*fireweather.Indices, error) {
	if chunkDays <= 0 || chunkDays >= d.Steps() {
		x, _, err := d.Calculate(prev)
		return x, err
	}
	shape := d.Temp.Shape
	out := &fireweather.Indices{
		FFMC: sparse.ZerosDense(shape...),
		DMC:  sparse.ZerosDense(shape...),
		DC:   sparse.ZerosDense(shape...),
		ISI:  sparse.ZerosDense(shape...),
		BUI:  sparse.ZerosDense(shape...),
		FWI:  sparse.ZerosDense(shape...),
	}
	nCells := d.Cells()
	state := prev
	for t0 := 0; t0 < d.Steps(); t0 += chunkDays {
		t1 := t0 + chunkDays
		if t1 > d.Steps() {
			t1 = d.Steps()
		}
		chunk, err := d.Slice(t0, t1)
		if err != nil {
			return nil, err
		}
		x, s, err := chunk.Calculate(state)
		if err != nil {
			return nil, err
		}
		state = s
		for _, p := range []struct{ dst, src *sparse.DenseArray }{
			{out.FFMC, x.FFMC}, {out.DMC, x.DMC}, {out.DC, x.DC},
			{out.ISI, x.ISI}, {out.BUI, x.BUI}, {out.FWI, x.FWI},
		} {
			copy(p.dst.Elements[t0*nCells:t1*nCells], p.src.Elements)
		}
	}
	return out, nil
}

// startupCodes derives per-cell seed states from the first detected
// fire season. With a snow depth grid, the preceding winter's snow
// cover and the snow-free season start drive the start-up policy;
// without one, the season starts with the first sustained run of
// warm days and every cell seeds from the reference values.
func startupCodes(d *fireweather.Dataset, s SeasonConfig) ([]fireweather.Codes, error) {
	nCells := d.Cells()
	if d.Snow == nil {
		logger.Info("no snow depth grid; detecting season start from temperature")
		start, err := d.WarmStart(s.TempThreshold)
		if err != nil {
			return nil, err
		}
		snow := make([]float64, nCells)
		for i := range snow {
			snow[i] = 1
		}
		return d.StartupCodes(snow, start.Elements[:nCells], fireweather.GFWEDStartup{})
	}
	snow, err := d.SignificantSnowCover(fireweather.SnowCoverOptions{
		MinSnowDayFrac: s.MinSnowDayFrac,
		MinDepth:       s.MinWinterSnowDepth,
		DepthThreshold: s.SnowDepthThreshold,
	})
	if err != nil {
		return nil, err
	}
	start, err := d.SnowFreeStart(s.SnowDepthThreshold)
	if err != nil {
		return nil, err
	}
	// The first year's classification seeds the scan.
	return d.StartupCodes(snow.Elements[:nCells], start.Elements[:nCells], fireweather.GFWEDStartup{})
}

// SubsetConfig holds the configuration for a spatial subset
// extraction.
type SubsetConfig struct {
	// InputFile is the path of the NetCDF file to extract from.
	InputFile string
	// OutputFile is the path of the NetCDF file to write the subset
	// to.
	OutputFile string
	// MinLon, MaxLon, MinLat, and MaxLat [degrees] give the bounding
	// box to extract.
	MinLon, MaxLon, MinLat, MaxLat float64
	// StartDate and EndDate (YYYY-MM-DD) crop the time axis to
	// [StartDate, EndDate]. An empty value keeps the axis from its
	// beginning or to its end.
	StartDate, EndDate string
	// Variables lists the variables to copy. Variables not present
	// in the input are skipped.
	Variables []string
}

// RunSubset cuts the grids in cfg.InputFile down to the configured
// bounding box and date range and writes them to cfg.OutputFile,
// together with the trimmed coordinate variables and a latitude grid
// over the spatial dimensions so the result can be used directly as
// a run input.
func RunSubset(cfg SubsetConfig) error {
	logger.Infof("subsetting %s to [%g, %g] x [%g, %g]",
		cfg.InputFile, cfg.MinLon, cfg.MaxLon, cfg.MinLat, cfg.MaxLat)
	r, err := os.Open(cfg.InputFile)
	if err != nil {
		return fmt.Errorf("fireweather: opening input file: %v", err)
	}
	defer r.Close()
	f, err := cdf.Open(r)
	if err != nil {
		return fmt.Errorf("fireweather: opening netcdf file: %v", err)
	}

	lats, err := readCoord(f, "lat", true)
	if err != nil {
		return err
	}
	lons, err := readCoord(f, "lon", false)
	if err != nil {
		return err
	}
	dates, err := readDates(f)
	if err != nil {
		return err
	}
	start, end := dates[0], dates[len(dates)-1]
	if cfg.StartDate != "" {
		if start, err = time.Parse("2006-01-02", cfg.StartDate); err != nil {
			return fmt.Errorf("fireweather: invalid start date %q: %v", cfg.StartDate, err)
		}
	}
	if cfg.EndDate != "" {
		if end, err = time.Parse("2006-01-02", cfg.EndDate); err != nil {
			return fmt.Errorf("fireweather: invalid end date %q: %v", cfg.EndDate, err)
		}
	}
	cropTime := cfg.StartDate != "" || cfg.EndDate != ""

	b := &geom.Bounds{
		Min: geom.Point{X: cfg.MinLon, Y: cfg.MinLat},
		Max: geom.Point{X: cfg.MaxLon, Y: cfg.MaxLat},
	}

	type subVar struct {
		name  string
		attrs map[string]string
		data  *sparse.DenseArray
	}
	var kept []subVar
	var subLats, subLons []float64
	outDates := dates
	for _, name := range cfg.Variables {
		if len(f.Header.Lengths(name)) == 0 {
			logger.Warnf("variable %s not in %s; skipping", name, cfg.InputFile)
			continue
		}
		data, err := readGrid(f, name)
		if err != nil {
			return err
		}
		sub, sl, sn, err := subset.BBox(data, lats, lons, b)
		if err != nil {
			return fmt.Errorf("fireweather: subsetting variable %s: %v", name, err)
		}
		if cropTime {
			if sub, outDates, err = subset.Time(sub, dates, start, end); err != nil {
				return fmt.Errorf("fireweather: cropping variable %s: %v", name, err)
			}
		}
		subLats, subLons = sl, sn
		attrs := make(map[string]string)
		for _, a := range f.Header.Attributes(name) {
			if s, ok := f.Header.GetAttribute(name, a).(string); ok {
				attrs[a] = s
			}
		}
		kept = append(kept, subVar{name: name, attrs: attrs, data: sub})
	}
	if len(kept) == 0 {
		return fmt.Errorf("fireweather: no requested variables found in %s", cfg.InputFile)
	}

	dims := []string{"time", "lat", "lon"}
	h := cdf.NewHeader(dims, []int{len(outDates), len(subLats), len(subLons)})
	h.AddAttribute("", "title", "fireweather spatial subset")
	for _, v := range kept {
		h.AddVariable(v.name, dims, []float32{0})
		for a, val := range v.attrs {
			h.AddAttribute(v.name, a, val)
		}
	}
	// The latitude grid repeats the coordinate vector across the
	// spatial dimensions, matching the run input format.
	h.AddVariable("lat", dims[1:], []float32{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("lon", dims[1:], []float32{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddVariable("time", dims[:1], []float64{0})
	h.AddAttribute("time", "units", outDates[0].Format("days since 2006-01-02"))
	h.Define()

	w, err := os.Create(cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("fireweather: creating output file: %v", err)
	}
	defer w.Close()
	of, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("fireweather: creating netcdf file: %v", err)
	}
	for _, v := range kept {
		if err := writeVar(of, v.name, v.data.Elements); err != nil {
			return err
		}
	}
	latGrid := sparse.ZerosDense(len(subLats), len(subLons))
	lonGrid := sparse.ZerosDense(len(subLats), len(subLons))
	for j, lat := range subLats {
		for i, lon := range subLons {
			latGrid.Set(lat, j, i)
			lonGrid.Set(lon, j, i)
		}
	}
	if err := writeVar(of, "lat", latGrid.Elements); err != nil {
		return err
	}
	if err := writeVar(of, "lon", lonGrid.Elements); err != nil {
		return err
	}
	days := make([]float64, len(outDates))
	for i, date := range outDates {
		days[i] = date.Sub(outDates[0]).Hours() / 24
	}
	tEnd := of.Header.Lengths("time")
	tw := of.Writer("time", make([]int, len(tEnd)), tEnd)
	if _, err := tw.Write(days); err != nil {
		return fmt.Errorf("fireweather: writing time coordinate: %v", err)
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		return fmt.Errorf("fireweather: finalizing output file: %v", err)
	}
	return nil
}

// readGrid reads one variable into a DenseArray, accepting float or
// double storage.
func readGrid(f *cdf.File, name string) (*sparse.DenseArray, error) {
	dims := f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("fireweather: netcdf file does not contain variable %s", name)
	}
	r := f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("fireweather: reading netcdf variable %s: %v", name, err)
	}
	data := sparse.ZerosDense(dims...)
	switch vals := buf.(type) {
	case []float32:
		for i, v := range vals {
			data.Elements[i] = float64(v)
		}
	case []float64:
		copy(data.Elements, vals)
	default:
		return nil, fmt.Errorf("fireweather: variable %s is not floating point", name)
	}
	return data, nil
}

// readCoord reads a coordinate variable as a vector. A
// two-dimensional coordinate grid is reduced to its first column
// (for latitude) or first row (for longitude), so a file produced by
// a previous subset run can be subset again.
func readCoord(f *cdf.File, name string, column bool) ([]float64, error) {
	a, err := readGrid(f, name)
	if err != nil {
		return nil, err
	}
	switch len(a.Shape) {
	case 1:
		return a.Elements, nil
	case 2:
		if column {
			o := make([]float64, a.Shape[0])
			for j := range o {
				o[j] = a.Get(j, 0)
			}
			return o, nil
		}
		o := make([]float64, a.Shape[1])
		for i := range o {
			o[i] = a.Get(0, i)
		}
		return o, nil
	}
	return nil, fmt.Errorf("fireweather: coordinate %s has %d dimensions; want 1 or 2",
		name, len(a.Shape))
}

// readDates reads the time coordinate and resolves it against its
// "days since" units attribute.
func readDates(f *cdf.File) ([]time.Time, error) {
	a, err := readGrid(f, "time")
	if err != nil {
		return nil, err
	}
	if len(a.Elements) == 0 {
		return nil, fmt.Errorf("fireweather: empty time coordinate")
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
	dates := make([]time.Time, len(a.Elements))
	for i, v := range a.Elements {
		dates[i] = epoch.AddDate(0, 0, int(v))
	}
	return dates, nil
}

// writeVar writes one variable as float32.
func writeVar(f *cdf.File, name string, vals []float64) error {
	data32 := make([]float32, len(vals))
	for i, e := range vals {
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
