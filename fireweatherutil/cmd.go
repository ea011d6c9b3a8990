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

// Package fireweatherutil holds the configuration and command-line
// interface for the fireweather program.
package fireweatherutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lnashier/viper"
	"github.com/qwhelan/fireweather"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var logger *logrus.Logger

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	logger = logrus.StandardLogger()
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	})

	// Options are the configuration options available to fireweather.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputFile",
			usage: `
              InputFile is the path to the NetCDF file holding the daily
              weather grids (tas [degC], pr [mm], sfcWind [km/h], hurs [%],
              and optionally snd [m]).`,
			shorthand:  "i",
			defaultVal: "fireweather_input.nc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path of the NetCDF file to write the results
              to. The file will be overwritten if it already exists.`,
			shorthand:  "o",
			defaultVal: "fireweather_output.nc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), subsetCmd.Flags()},
		},
		{
			name: "Startup",
			usage: `
              Startup specifies whether to detect the fire season start from
              the input grids and seed the moisture codes accordingly. If
              false, the calculation starts from the reference start-up
              values on the first day of the dataset.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ChunkDays",
			usage: `
              ChunkDays is the number of days to process per chunk. Chunks
              run in sequence with the moisture-code state carried between
              them, which bounds memory held by intermediate results
              without changing the output. Zero processes the whole span
              at once.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Season.MinSnowDayFrac",
			usage: `
              Season.MinSnowDayFrac is the minimum fraction of mid-winter
              days with snow on the ground for a winter to count as having
              significant snow cover.`,
			defaultVal: 0.75,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Season.MinWinterSnowDepth",
			usage: `
              Season.MinWinterSnowDepth [m] is the minimum mean mid-winter
              snow depth for a winter to count as having significant snow
              cover.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Season.SnowDepthThreshold",
			usage: `
              Season.SnowDepthThreshold [m] is the snow depth above which a
              day counts as snow covered, both for the winter classification
              and for finding the snow-free season start.`,
			defaultVal: 0.01,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Season.TempThreshold",
			usage: `
              Season.TempThreshold [degC] is the noon temperature that must
              be sustained for the fire season to start when the input has
              no snow depth grid.`,
			defaultVal: 6.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Subset.MinLon",
			usage: `
              Subset.MinLon [degrees] is the western edge of the bounding
              box to extract.`,
			defaultVal: -180.0,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "Subset.MaxLon",
			usage: `
              Subset.MaxLon [degrees] is the eastern edge of the bounding
              box to extract.`,
			defaultVal: 180.0,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "Subset.MinLat",
			usage: `
              Subset.MinLat [degrees] is the southern edge of the bounding
              box to extract.`,
			defaultVal: -90.0,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "Subset.MaxLat",
			usage: `
              Subset.MaxLat [degrees] is the northern edge of the bounding
              box to extract.`,
			defaultVal: 90.0,
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "Subset.StartDate",
			usage: `
              Subset.StartDate (YYYY-MM-DD) is the first day to keep. If
              empty, the time axis is kept from its beginning.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "Subset.EndDate",
			usage: `
              Subset.EndDate (YYYY-MM-DD) is the last day to keep. If
              empty, the time axis is kept to its end.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
		{
			name: "Subset.Variables",
			usage: `
              Subset.Variables lists the variables to copy into the subset
              file.`,
			defaultVal: []string{"tas", "pr", "sfcWind", "hurs", "snd"},
			flagsets:   []*pflag.FlagSet{subsetCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("FIREWEATHER")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(subsetCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("fireweather: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// checkOutputFile makes sure that the output file is specified and has
// a NetCDF extension.
func checkOutputFile(o string) (string, error) {
	if o == "" {
		return "", fmt.Errorf("fireweather: you need to specify an output file")
	}
	if ext := filepath.Ext(o); ext != ".nc" {
		return "", fmt.Errorf("fireweather: output file must have the .nc extension; got %q", ext)
	}
	return o, nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "fireweather",
	Short: "A Canadian Fire Weather Index System calculator.",
	Long: `fireweather computes the indices of the Canadian Forest Fire Weather
Index System from gridded daily weather time series.
Use the subcommands specified below to access the functionality.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the format
'FIREWEATHER_var' where 'var' is the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration
information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of fireweather.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("fireweather v%s\n", fireweather.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute the fire weather indices.",
	Long: `run reads the daily weather grids from InputFile, optionally detects
the start of the fire season in each grid cell and seeds the moisture codes
accordingly, computes the six indices of the Fire Weather Index System for
every cell and day, and writes them to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		cfg := RunConfig{
			InputFile:  os.ExpandEnv(Cfg.GetString("InputFile")),
			OutputFile: os.ExpandEnv(outputFile),
			Startup:    Cfg.GetBool("Startup"),
			ChunkDays:  Cfg.GetInt("ChunkDays"),
			Season: SeasonConfig{
				MinSnowDayFrac:     Cfg.GetFloat64("Season.MinSnowDayFrac"),
				MinWinterSnowDepth: Cfg.GetFloat64("Season.MinWinterSnowDepth"),
				SnowDepthThreshold: Cfg.GetFloat64("Season.SnowDepthThreshold"),
				TempThreshold:      Cfg.GetFloat64("Season.TempThreshold"),
			},
		}
		return Run(cfg)
	},
	DisableAutoGenTag: true,
}

var subsetCmd = &cobra.Command{
	Use:   "subset",
	Short: "Extract a spatial subset of the input grids.",
	Long: `subset reads the weather grids from InputFile, cuts them down to the
bounding box and date range given by the Subset options, and writes the
result to OutputFile in the same format, ready to be used as a run input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		vars, err := cast.ToStringSliceE(Cfg.Get("Subset.Variables"))
		if err != nil {
			return fmt.Errorf("fireweather: invalid Subset.Variables: %v", err)
		}
		cfg := SubsetConfig{
			InputFile:  os.ExpandEnv(Cfg.GetString("InputFile")),
			OutputFile: os.ExpandEnv(outputFile),
			MinLon:     Cfg.GetFloat64("Subset.MinLon"),
			MaxLon:     Cfg.GetFloat64("Subset.MaxLon"),
			MinLat:     Cfg.GetFloat64("Subset.MinLat"),
			MaxLat:     Cfg.GetFloat64("Subset.MaxLat"),
			StartDate:  Cfg.GetString("Subset.StartDate"),
			EndDate:    Cfg.GetString("Subset.EndDate"),
			Variables:  vars,
		}
		return RunSubset(cfg)
	},
	DisableAutoGenTag: true,
}
