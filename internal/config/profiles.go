package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultProfileName is always present in a ProfileSet.
const DefaultProfileName = "default"

// Profile is a calibration of the reconstruction parameters for one
// font/scan family.
type Profile struct {
	Name          string  `yaml:"-" json:"name"`
	RenderDPI     int     `yaml:"render_dpi" json:"render_dpi"`
	LineTolerance float64 `yaml:"line_tolerance" json:"line_tolerance"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
	SpaceRatio    float64 `yaml:"space_ratio" json:"space_ratio"`
}

// Validate checks that the profile can drive the pipeline.
func (p Profile) Validate() error {
	if p.RenderDPI < 36 || p.RenderDPI > 1200 {
		return fmt.Errorf("profile %q: render_dpi must be between 36 and 1200, got %d", p.Name, p.RenderDPI)
	}
	if p.LineTolerance < 0 {
		return fmt.Errorf("profile %q: line_tolerance must not be negative", p.Name)
	}
	if p.MinConfidence < 0 || p.MinConfidence > 100 {
		return fmt.Errorf("profile %q: min_confidence must be within [0,100], got %v", p.Name, p.MinConfidence)
	}
	if p.SpaceRatio <= 0 || p.SpaceRatio > 2 {
		return fmt.Errorf("profile %q: space_ratio must be within (0,2], got %v", p.Name, p.SpaceRatio)
	}
	return nil
}

// DefaultProfile builds the profile described by the environment.
func (c *Config) DefaultProfile() Profile {
	return Profile{
		Name:          DefaultProfileName,
		RenderDPI:     c.RenderDPI,
		LineTolerance: c.LineTolerance,
		MinConfidence: c.MinConfidence,
		SpaceRatio:    c.SpaceRatio,
	}
}

// ProfileSet is a named collection of calibration profiles.
type ProfileSet struct {
	profiles map[string]Profile
}

type profileFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// profileEntry is one profile as read from disk. A nil field was absent
// from the file and inherits the default; an explicit zero is kept.
type profileEntry struct {
	RenderDPI     *int     `yaml:"render_dpi"`
	LineTolerance *float64 `yaml:"line_tolerance"`
	MinConfidence *float64 `yaml:"min_confidence"`
	SpaceRatio    *float64 `yaml:"space_ratio"`
}

func (e profileEntry) over(def Profile) Profile {
	p := def
	if e.RenderDPI != nil {
		p.RenderDPI = *e.RenderDPI
	}
	if e.LineTolerance != nil {
		p.LineTolerance = *e.LineTolerance
	}
	if e.MinConfidence != nil {
		p.MinConfidence = *e.MinConfidence
	}
	if e.SpaceRatio != nil {
		p.SpaceRatio = *e.SpaceRatio
	}
	return p
}

// LoadProfiles builds the profile set for cfg. Profiles from
// cfg.CalibrationFile are layered over the env-derived default; fields
// absent from the file inherit the default's values.
func LoadProfiles(cfg *Config) (*ProfileSet, error) {
	set := &ProfileSet{profiles: map[string]Profile{
		DefaultProfileName: cfg.DefaultProfile(),
	}}
	if cfg.CalibrationFile == "" {
		return set, nil
	}

	data, err := os.ReadFile(cfg.CalibrationFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}
	if err := set.merge(data); err != nil {
		return nil, err
	}
	return set, nil
}

// ParseProfiles builds a profile set from YAML bytes over the given default.
func ParseProfiles(data []byte, def Profile) (*ProfileSet, error) {
	def.Name = DefaultProfileName
	set := &ProfileSet{profiles: map[string]Profile{DefaultProfileName: def}}
	if err := set.merge(data); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *ProfileSet) merge(data []byte) error {
	var file struct {
		Profiles map[string]profileEntry `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse calibration file: %w", err)
	}

	def := s.profiles[DefaultProfileName]
	for name, entry := range file.Profiles {
		p := entry.over(def)
		p.Name = name
		if err := p.Validate(); err != nil {
			return err
		}
		s.profiles[name] = p
	}
	return nil
}

// Get returns the named profile. An empty name selects the default.
func (s *ProfileSet) Get(name string) (Profile, bool) {
	if name == "" {
		name = DefaultProfileName
	}
	p, ok := s.profiles[name]
	return p, ok
}

// Names returns the profile names in sorted order.
func (s *ProfileSet) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Marshal renders the set back to the calibration file format.
func (s *ProfileSet) Marshal() ([]byte, error) {
	return yaml.Marshal(profileFile{Profiles: s.profiles})
}
