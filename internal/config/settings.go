package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
)

// Default column names of the shoreline and tide CSV files.
const (
	DefaultTimeColumn      = "Date"
	DefaultTideTimeColumn  = "dates"
	DefaultTideValueColumn = "tide"
)

// Settings describes one correction run: the correction parameters and
// where the shoreline and tide tables live.
//
//	weighting: 1.0
//	contour: 0.7
//	offset: 0.0
//	beach_slope: [0.1, 0.08, 0.12] # or a single number
//	transects: [NA1, NA2, NA3]
//	tide_data: tides.csv
//	shoreline_csv: NARRA_transect_SL_data.csv
type Settings struct {
	Weighting  float64  `yaml:"weighting" json:"weighting"`
	Contour    float64  `yaml:"contour" json:"contour"`
	Offset     float64  `yaml:"offset" json:"offset"`
	BeachSlope Slope    `yaml:"beach_slope" json:"beach_slope"`
	Transects  []string `yaml:"transects" json:"transects"`

	TideData        string `yaml:"tide_data,omitempty" json:"tide_data,omitempty"`
	ShorelineCSV    string `yaml:"shoreline_csv,omitempty" json:"shoreline_csv,omitempty"`
	Output          string `yaml:"output,omitempty" json:"output,omitempty"`
	TimeColumn      string `yaml:"time_column" json:"time_column,omitempty"`
	TideTimeColumn  string `yaml:"tide_time_column" json:"tide_time_column,omitempty"`
	TideValueColumn string `yaml:"tide_value_column" json:"tide_value_column,omitempty"`
}

// DefaultSettings returns settings with the defaults applied. Decoding into
// the result keeps defaults for keys the document omits.
func DefaultSettings() Settings {
	return Settings{
		Weighting:       1,
		TimeColumn:      DefaultTimeColumn,
		TideTimeColumn:  DefaultTideTimeColumn,
		TideValueColumn: DefaultTideValueColumn,
	}
}

// LoadSettings reads a YAML settings file. Relative paths in the file are
// resolved against dataDir.
func LoadSettings(path, dataDir string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	s, err := ParseSettings(data)
	if err != nil {
		return Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	s.ResolvePaths(dataDir)
	return s, nil
}

// ParseSettings decodes a YAML settings document. Unknown keys are rejected.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings that can be checked without the shoreline
// table. Slope count and transect ids are checked by the correction itself.
func (s Settings) Validate() error {
	if !s.BeachSlope.IsSet() {
		return errors.New("beach_slope is required")
	}
	if s.TimeColumn == "" || s.TideTimeColumn == "" || s.TideValueColumn == "" {
		return errors.New("column names must not be empty")
	}
	return nil
}

// ResolvePaths makes relative file paths absolute against dir.
func (s *Settings) ResolvePaths(dir string) {
	for _, p := range []*string{&s.TideData, &s.ShorelineCSV, &s.Output} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Correction converts the settings to domain correction settings.
func (s Settings) Correction() domain.CorrectionSettings {
	return domain.CorrectionSettings{
		Weighting:  s.Weighting,
		Contour:    s.Contour,
		Offset:     s.Offset,
		BeachSlope: s.BeachSlope.BeachSlope,
		Transects:  append([]string(nil), s.Transects...),
	}
}

// Slope decodes a beach slope written either as a number or as a list of
// numbers.
type Slope struct {
	domain.BeachSlope
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Slope) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("beach_slope: %w", err)
		}
		s.BeachSlope = domain.ScalarSlope(v)
	case yaml.SequenceNode:
		var vs []float64
		if err := node.Decode(&vs); err != nil {
			return fmt.Errorf("beach_slope: %w", err)
		}
		s.BeachSlope = domain.PerTransectSlope(vs)
	default:
		return fmt.Errorf("beach_slope: line %d: expected a number or a list of numbers", node.Line)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Slope) MarshalYAML() (any, error) {
	return s.value(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Slope) UnmarshalJSON(buf []byte) error {
	buf = bytes.TrimSpace(buf)
	if bytes.Equal(buf, []byte("null")) {
		return nil
	}
	if len(buf) > 0 && buf[0] == '[' {
		var vs []float64
		if err := json.Unmarshal(buf, &vs); err != nil {
			return fmt.Errorf("beach_slope %s not a list of numbers: %w", buf, err)
		}
		s.BeachSlope = domain.PerTransectSlope(vs)
		return nil
	}
	var v float64
	if err := json.Unmarshal(buf, &v); err != nil {
		return fmt.Errorf("beach_slope %s not a number: %w", buf, err)
	}
	s.BeachSlope = domain.ScalarSlope(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Slope) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.value())
}

func (s Slope) value() any {
	switch {
	case !s.IsSet():
		return nil
	case s.IsScalar():
		return s.Scalar()
	default:
		return s.List()
	}
}

var (
	_ yaml.Unmarshaler = (*Slope)(nil)
	_ json.Unmarshaler = (*Slope)(nil)
)
