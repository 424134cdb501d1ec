// Package scenario loads request scenarios and plays them against the
// shaping engines, either in virtual time or in real time.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/goshape/pkg/diagnostics"
	"github.com/vnykmshr/goshape/pkg/ratelimit/shaping"
)

// Modes a scenario can run in.
const (
	ModeSync        = "sync"
	ModeCooperative = "cooperative"
)

// Duration wraps time.Duration so it reads from strings such as "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	if s == "" {
		*d = 0
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// String returns the duration as a string.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// Request describes one entry of a scenario's request list.
type Request struct {
	// Weight is the number of units requested. Defaults to 1.
	Weight *int `yaml:"weight,omitempty"`

	// Gap is the delay between the previous request's arrival and this one.
	Gap Duration `yaml:"gap,omitempty"`

	// Hold is how long the operation runs after admission. Simulations
	// ignore it; in cooperative mode it is what MaxConcurrent bounds.
	Hold Duration `yaml:"hold,omitempty"`

	// Repeat expands the entry into that many identical requests, each Gap
	// apart. Defaults to 1.
	Repeat int `yaml:"repeat,omitempty"`
}

// Scenario is a shaper configuration plus the requests to send through it.
type Scenario struct {
	Name          string    `yaml:"name,omitempty"`
	Algorithm     string    `yaml:"algorithm"`
	Capacity      float64   `yaml:"capacity"`
	Period        Duration  `yaml:"period"`
	Mode          string    `yaml:"mode,omitempty"`
	MaxConcurrent int       `yaml:"max_concurrent,omitempty"`
	Timeout       Duration  `yaml:"timeout,omitempty"`
	Diagnostics   string    `yaml:"diagnostics,omitempty"`
	Requests      []Request `yaml:"requests"`
}

// Step is a single request after the request list has been expanded.
type Step struct {
	Index  int
	Weight int

	// Arrival is the offset from the start of the run.
	Arrival time.Duration
	Hold    time.Duration
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading scenario file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse validates data against the scenario schema and decodes it. Missing
// optional fields are filled with their defaults.
func Parse(data []byte) (*Scenario, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("error parsing scenario: %w", err)
	}

	s.applyDefaults()
	if _, err := s.Config(); err != nil {
		return nil, err
	}
	if s.Diagnostics != "" {
		if err := diagnostics.ValidateSpec(s.Diagnostics); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// Uniform builds a scenario of count requests of the same weight, gap apart.
func Uniform(algorithm string, capacity float64, period time.Duration, count, weight int, gap time.Duration) *Scenario {
	w := weight
	s := &Scenario{
		Name:      "uniform",
		Algorithm: algorithm,
		Capacity:  capacity,
		Period:    Duration(period),
		Requests:  []Request{{Weight: &w, Gap: Duration(gap), Repeat: count}},
	}
	s.applyDefaults()
	return s
}

func (s *Scenario) applyDefaults() {
	if s.Name == "" {
		s.Name = s.Algorithm
	}
	if s.Mode == "" {
		s.Mode = ModeSync
	}
}

// Config returns the validated shaping configuration of the scenario.
func (s *Scenario) Config() (shaping.Config, error) {
	return shaping.NewConfig(s.Capacity, time.Duration(s.Period))
}

// Steps expands the request list in arrival order. The first request
// arrives after its own gap.
func (s *Scenario) Steps() []Step {
	var (
		steps   []Step
		arrival time.Duration
	)
	for _, r := range s.Requests {
		weight := 1
		if r.Weight != nil {
			weight = *r.Weight
		}
		repeat := r.Repeat
		if repeat < 1 {
			repeat = 1
		}
		for i := 0; i < repeat; i++ {
			arrival += time.Duration(r.Gap)
			steps = append(steps, Step{
				Index:   len(steps),
				Weight:  weight,
				Arrival: arrival,
				Hold:    time.Duration(r.Hold),
			})
		}
	}
	return steps
}
