/*
DESCRIPTION
  config.go provides loading, validation and saving of the compositor's
  key/value configuration file.

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean)

  It is free software: you can redistribute it and/or modify them
  under the terms of the GNU General Public License as published by the
  Free Software Foundation, either version 3 of the License, or (at your
  option) any later version.

  It is distributed in the hope that it will be useful, but WITHOUT
  ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
  FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License
  for more details.

  You should have received a copy of the GNU General Public License
  in gpl.txt.  If not, see http://www.gnu.org/licenses.
*/

// Package config holds the compositor configuration. Configuration files
// hold one "Key value" pair per line.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ausocean/utils/filemap"
	"github.com/ausocean/utils/logging"
	"github.com/ausocean/utils/sliceutils"

	"github.com/ausocean/aroverlay/pi/marker"
)

// Compositing modes.
const (
	ModeQuad      = "quad"
	ModeBillboard = "billboard"
)

var (
	modes       = []string{ModeQuad, ModeBillboard}
	logLevels   = []string{"debug", "info", "warning", "error", "fatal"}
	resolutions = []string{"4x4", "5x5", "6x6", "7x7"}
	dictSizes   = []string{"50", "100", "250", "1000"}
	stillExts   = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif", ".tif", ".tiff", ".webp"}
)

// Config holds the compositor settings.
type Config struct {
	Mode   string
	Source string // Image warped onto the anchors in quad mode.
	Input  string // Camera index or video file.
	Output string // Video file; derived from Input for file inputs.

	// Quad mode.
	Anchors         [4]int
	CornerPolicy    marker.CornerPolicy
	ErodeIterations int
	ErodeSize       int
	SideBySide      bool

	// Billboard mode.
	Overlays     map[int]string
	Scales       map[int]float64
	DefaultScale float64
	DrawOutline  bool
	DrawLabel    bool
	LabelFont    string
	LabelSize    float64

	Display    bool
	Dictionary string
	FPS        float64
	Codec      string
	Pipeline   int

	LogPath  string
	LogLevel string
}

// params lists the configuration keys in the order they are written, with
// their defaults and the functions that parse and format them.
var params = []struct {
	name   string
	def    string
	update func(c *Config, v string) error
	format func(c *Config) string
}{
	{
		name: "Mode",
		def:  ModeQuad,
		update: func(c *Config, v string) error {
			if !sliceutils.ContainsString(modes, v) {
				return fmt.Errorf("invalid mode: %s", v)
			}
			c.Mode = v
			return nil
		},
		format: func(c *Config) string { return c.Mode },
	},
	{
		name:   "Source",
		update: func(c *Config, v string) error { c.Source = v; return nil },
		format: func(c *Config) string { return c.Source },
	},
	{
		name:   "Input",
		def:    "0",
		update: func(c *Config, v string) error { c.Input = v; return nil },
		format: func(c *Config) string { return c.Input },
	},
	{
		name:   "Output",
		update: func(c *Config, v string) error { c.Output = v; return nil },
		format: func(c *Config) string { return c.Output },
	},
	{
		name: "Anchors",
		def:  "0,1,2,3",
		update: func(c *Config, v string) error {
			ids, err := parseInts(v)
			if err != nil {
				return err
			}
			if len(ids) != 4 {
				return fmt.Errorf("need 4 anchor ids, got %d", len(ids))
			}
			copy(c.Anchors[:], ids)
			return nil
		},
		format: func(c *Config) string { return joinInts(c.Anchors[:]) },
	},
	{
		name: "CornerPolicy",
		def:  marker.First.String(),
		update: func(c *Config, v string) error {
			p, err := marker.ParseCornerPolicy(v)
			if err != nil {
				return err
			}
			c.CornerPolicy = p
			return nil
		},
		format: func(c *Config) string { return c.CornerPolicy.String() },
	},
	{
		name:   "ErodeIterations",
		def:    "3",
		update: func(c *Config, v string) error { return parseCount(v, 0, &c.ErodeIterations) },
		format: func(c *Config) string { return strconv.Itoa(c.ErodeIterations) },
	},
	{
		name:   "ErodeSize",
		def:    "3",
		update: func(c *Config, v string) error { return parseCount(v, 1, &c.ErodeSize) },
		format: func(c *Config) string { return strconv.Itoa(c.ErodeSize) },
	},
	{
		name:   "SideBySide",
		def:    "true",
		update: func(c *Config, v string) error { return parseBool(v, &c.SideBySide) },
		format: func(c *Config) string { return strconv.FormatBool(c.SideBySide) },
	},
	{
		name: "Overlays",
		update: func(c *Config, v string) error {
			m := make(map[int]string)
			if v == "" {
				c.Overlays = m
				return nil
			}
			for k, path := range filemap.Split(v, ",", "=") {
				id, err := strconv.Atoi(k)
				if err != nil {
					return fmt.Errorf("invalid overlay marker id: %s", k)
				}
				if path == "" {
					return fmt.Errorf("missing overlay path for marker %d", id)
				}
				m[id] = path
			}
			c.Overlays = m
			return nil
		},
		format: func(c *Config) string {
			pairs := make([]string, 0, len(c.Overlays))
			for _, id := range sortedKeys(c.Overlays) {
				pairs = append(pairs, fmt.Sprintf("%d=%s", id, c.Overlays[id]))
			}
			return strings.Join(pairs, ",")
		},
	},
	{
		name: "Scales",
		update: func(c *Config, v string) error {
			m := make(map[int]float64)
			if v == "" {
				c.Scales = m
				return nil
			}
			for k, s := range filemap.Split(v, ",", "=") {
				id, err := strconv.Atoi(k)
				if err != nil {
					return fmt.Errorf("invalid scale marker id: %s", k)
				}
				var f float64
				err = parsePositive(s, &f)
				if err != nil {
					return fmt.Errorf("invalid scale for marker %d: %w", id, err)
				}
				m[id] = f
			}
			c.Scales = m
			return nil
		},
		format: func(c *Config) string {
			pairs := make([]string, 0, len(c.Scales))
			for _, id := range sortedKeys(c.Scales) {
				pairs = append(pairs, fmt.Sprintf("%d=%s", id, formatFloat(c.Scales[id])))
			}
			return strings.Join(pairs, ",")
		},
	},
	{
		name:   "DefaultScale",
		def:    "0.5",
		update: func(c *Config, v string) error { return parsePositive(v, &c.DefaultScale) },
		format: func(c *Config) string { return formatFloat(c.DefaultScale) },
	},
	{
		name:   "DrawOutline",
		def:    "true",
		update: func(c *Config, v string) error { return parseBool(v, &c.DrawOutline) },
		format: func(c *Config) string { return strconv.FormatBool(c.DrawOutline) },
	},
	{
		name:   "DrawLabel",
		def:    "true",
		update: func(c *Config, v string) error { return parseBool(v, &c.DrawLabel) },
		format: func(c *Config) string { return strconv.FormatBool(c.DrawLabel) },
	},
	{
		name:   "LabelFont",
		update: func(c *Config, v string) error { c.LabelFont = v; return nil },
		format: func(c *Config) string { return c.LabelFont },
	},
	{
		name:   "LabelSize",
		def:    "14",
		update: func(c *Config, v string) error { return parsePositive(v, &c.LabelSize) },
		format: func(c *Config) string { return formatFloat(c.LabelSize) },
	},
	{
		name:   "Display",
		def:    "false",
		update: func(c *Config, v string) error { return parseBool(v, &c.Display) },
		format: func(c *Config) string { return strconv.FormatBool(c.Display) },
	},
	{
		name: "Dictionary",
		def:  "6x6_250",
		update: func(c *Config, v string) error {
			if !validDictionary(v) {
				return fmt.Errorf("unknown marker dictionary: %s", v)
			}
			c.Dictionary = v
			return nil
		},
		format: func(c *Config) string { return c.Dictionary },
	},
	{
		name:   "FPS",
		def:    "28",
		update: func(c *Config, v string) error { return parsePositive(v, &c.FPS) },
		format: func(c *Config) string { return formatFloat(c.FPS) },
	},
	{
		name: "Codec",
		def:  "MJPG",
		update: func(c *Config, v string) error {
			if len(v) != 4 {
				return fmt.Errorf("codec must be a four character code: %s", v)
			}
			c.Codec = v
			return nil
		},
		format: func(c *Config) string { return c.Codec },
	},
	{
		name:   "Pipeline",
		def:    "0",
		update: func(c *Config, v string) error { return parseCount(v, 0, &c.Pipeline) },
		format: func(c *Config) string { return strconv.Itoa(c.Pipeline) },
	},
	{
		name:   "LogPath",
		def:    "/var/log/aroverlay/aroverlay.log",
		update: func(c *Config, v string) error { c.LogPath = v; return nil },
		format: func(c *Config) string { return c.LogPath },
	},
	{
		name: "LogLevel",
		def:  "info",
		update: func(c *Config, v string) error {
			v = strings.ToLower(v)
			if !sliceutils.ContainsString(logLevels, v) {
				return fmt.Errorf("invalid log level: %s", v)
			}
			c.LogLevel = v
			return nil
		},
		format: func(c *Config) string { return c.LogLevel },
	},
}

// Keys returns the configuration keys in file order.
func Keys() []string {
	keys := make([]string, len(params))
	for i, p := range params {
		keys[i] = p.name
	}
	return keys
}

// Default returns the default configuration.
func Default() *Config {
	c := &Config{}
	for _, p := range params {
		// Defaults are known to parse.
		_ = p.update(c, p.def)
	}
	return c
}

// Load reads the configuration file at path. Keys missing from the file
// take their defaults and unknown keys are ignored.
func Load(path string) (*Config, error) {
	m, err := filemap.ReadFrom(path, "\n", " ")
	if err != nil {
		return nil, fmt.Errorf("could not read config file %s: %w", path, err)
	}
	c := Default()
	for _, p := range params {
		v, ok := m[p.name]
		if !ok {
			continue
		}
		err := p.update(c, strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", p.name, err)
		}
	}
	return c, nil
}

// Set updates the named key from its string form.
func (c *Config) Set(key, value string) error {
	for _, p := range params {
		if p.name == key {
			err := p.update(c, value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			return nil
		}
	}
	return fmt.Errorf("unknown config key: %s", key)
}

// Map returns the configuration as key/value strings.
func (c *Config) Map() map[string]string {
	m := make(map[string]string, len(params))
	for _, p := range params {
		m[p.name] = p.format(c)
	}
	return m
}

// Save writes the configuration to path in key order.
func (c *Config) Save(path string) error {
	return filemap.WriteTo(path, "\n", " ", c.Map(), Keys())
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeQuad:
		if c.Source == "" {
			return errors.New("quad mode needs a Source image")
		}
		seen := make(map[int]bool, 4)
		for _, id := range c.Anchors {
			if seen[id] {
				return fmt.Errorf("duplicate anchor id: %d", id)
			}
			seen[id] = true
		}
	case ModeBillboard:
		if len(c.Overlays) == 0 {
			return errors.New("billboard mode needs at least one overlay")
		}
	default:
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	return nil
}

// Camera returns the camera index if Input names a camera.
func (c *Config) Camera() (int, bool) {
	n, err := strconv.Atoi(c.Input)
	return n, err == nil
}

// Still reports whether Input names a still image rather than a video.
func (c *Config) Still() bool {
	return sliceutils.ContainsString(stillExts, strings.ToLower(filepath.Ext(c.Input)))
}

// OutputPath returns the output path. Unless set, still images are written
// to <input>_ar_out.jpg and videos to <input>_ar_out.avi next to the input,
// and camera inputs are not written.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	if _, ok := c.Camera(); ok {
		return ""
	}
	base := strings.TrimSuffix(c.Input, filepath.Ext(c.Input))
	if c.Still() {
		return base + "_ar_out.jpg"
	}
	return base + "_ar_out.avi"
}

// Level returns the logging level for LogLevel.
func (c *Config) Level() int8 {
	switch c.LogLevel {
	case "debug":
		return int8(logging.Debug)
	case "warning":
		return int8(logging.Warning)
	case "error":
		return int8(logging.Error)
	case "fatal":
		return int8(logging.Fatal)
	}
	return int8(logging.Info)
}

func validDictionary(name string) bool {
	if name == "original" {
		return true
	}
	res, size, ok := strings.Cut(name, "_")
	return ok && sliceutils.ContainsString(resolutions, res) && sliceutils.ContainsString(dictSizes, size)
}

func parseInts(v string) ([]int, error) {
	var ids []int
	for _, s := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("invalid integer: %s", s)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

func joinInts(ids []int) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.Itoa(id)
	}
	return strings.Join(s, ",")
}

func parseCount(v string, min int, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("expected integer: %s", v)
	}
	if n < min {
		return fmt.Errorf("must be at least %d: %d", min, n)
	}
	*dst = n
	return nil
}

func parsePositive(v string, dst *float64) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("expected number: %s", v)
	}
	if f <= 0 {
		return fmt.Errorf("must be positive: %s", v)
	}
	*dst = f
	return nil
}

func parseBool(v string, dst *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("expected true or false: %s", v)
	}
	*dst = b
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
