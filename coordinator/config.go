// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: config.go — coordinator launch options
//
// Purpose:
//   - Declares the operator-facing options and the INI file loader. Flags
//     override file values; the file overrides defaults.
//
// INI layout:
//
//	[search]
//	MaxBase = 300
//	MaxPow  = 300
//	Primes  = 4294967291,4294967279
//
//	[coordinator]
//	Listen   = 127.0.0.1:8000
//	Output   = results.txt
//	Database = beal_run.db
//
// ─────────────────────────────────────────────────────────────────────────────

package coordinator

import (
	"fmt"

	"gopkg.in/ini.v1"

	"bealsearch/constants"
	"bealsearch/search"
	"bealsearch/utils"
)

// Options is everything a coordinator needs to launch.
type Options struct {
	MaxBase  uint32
	MaxPow   uint32
	Primes   []uint32
	Listen   string
	Output   string
	Database string
}

// DefaultOptions returns the stock configuration with no output path; the
// caller must supply one.
func DefaultOptions() Options {
	return Options{
		MaxBase:  300,
		MaxPow:   300,
		Primes:   append([]uint32(nil), constants.DefaultPrimes...),
		Listen:   constants.DefaultListenAddr,
		Database: constants.DefaultDBPath,
	}
}

// Config extracts the search configuration from the options.
func (o Options) Config() search.Config {
	return search.Config{MaxBase: o.MaxBase, MaxPow: o.MaxPow, Primes: o.Primes}
}

// Validate checks launch readiness beyond the search config itself.
func (o Options) Validate() error {
	if err := o.Config().Validate(); err != nil {
		return err
	}
	if o.Output == "" {
		return fmt.Errorf("no result log path configured")
	}
	if o.Listen == "" {
		return fmt.Errorf("no listen address configured")
	}
	return nil
}

// searchSection mirrors [search] for ini.MapTo.
type searchSection struct {
	MaxBase uint
	MaxPow  uint
	Primes  string
}

// coordinatorSection mirrors [coordinator] for ini.MapTo.
type coordinatorSection struct {
	Listen   string
	Output   string
	Database string
}

// LoadOptions overlays an INI file onto opts. Absent keys keep their
// current values.
func LoadOptions(path string, opts Options) (Options, error) {
	iniCfg, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, path)
	if err != nil {
		return opts, fmt.Errorf("load config %s: %w", path, err)
	}

	if sec, err := iniCfg.GetSection("search"); err == nil {
		var s searchSection
		if err := sec.MapTo(&s); err != nil {
			return opts, fmt.Errorf("config [search]: %w", err)
		}
		if s.MaxBase != 0 {
			opts.MaxBase = uint32(s.MaxBase)
		}
		if s.MaxPow != 0 {
			opts.MaxPow = uint32(s.MaxPow)
		}
		if s.Primes != "" {
			primes, err := utils.ParseU32List(s.Primes)
			if err != nil {
				return opts, fmt.Errorf("config [search] primes: %w", err)
			}
			opts.Primes = primes
		}
	}

	if sec, err := iniCfg.GetSection("coordinator"); err == nil {
		var c coordinatorSection
		if err := sec.MapTo(&c); err != nil {
			return opts, fmt.Errorf("config [coordinator]: %w", err)
		}
		if c.Listen != "" {
			opts.Listen = c.Listen
		}
		if c.Output != "" {
			opts.Output = c.Output
		}
		if c.Database != "" {
			opts.Database = c.Database
		}
	}

	return opts, nil
}
