package simulation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tazlauanubianca/Crowdsensing/internal/script"
)

// Scenario describes the devices of a simulation and the rounds they play.
type Scenario struct {
	Name    string       `yaml:"name" json:"name"`
	Devices []DeviceSpec `yaml:"devices" json:"devices"`
	Rounds  []RoundSpec  `yaml:"rounds" json:"rounds"`

	// Repeat replays the round list this many times. Zero means once.
	Repeat int `yaml:"repeat" json:"repeat"`
}

// DeviceSpec is one device and its initial readings. A null reading declares
// a location the device covers without a measured value.
type DeviceSpec struct {
	ID       int              `yaml:"id" json:"id"`
	Readings map[int]*float64 `yaml:"readings" json:"readings"`
}

// RoundSpec is one round: who neighbours whom, and what runs where.
type RoundSpec struct {
	Neighbours map[int][]int `yaml:"neighbours" json:"neighbours"`
	Scripts    []ScriptSpec  `yaml:"scripts" json:"scripts"`
}

// ScriptSpec assigns a named script to a device for a location.
type ScriptSpec struct {
	Device   int    `yaml:"device" json:"device"`
	Script   string `yaml:"script" json:"script"`
	Location int    `yaml:"location" json:"location"`
}

// LoadScenario reads and validates a scenario file. A missing name defaults
// to the file's base name.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	sc, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// ParseScenario decodes and validates a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate reports every problem in the scenario at once.
func (sc *Scenario) Validate() error {
	var errs []string

	if len(sc.Devices) == 0 {
		errs = append(errs, "at least one device is required")
	}
	if sc.Repeat < 0 {
		errs = append(errs, "repeat must not be negative")
	}

	ids := make(map[int]bool, len(sc.Devices))
	for _, d := range sc.Devices {
		if ids[d.ID] {
			errs = append(errs, fmt.Sprintf("duplicate device id %d", d.ID))
		}
		ids[d.ID] = true
	}

	for i, r := range sc.Rounds {
		for _, owner := range sortedKeys(r.Neighbours) {
			if !ids[owner] {
				errs = append(errs, fmt.Sprintf("round %d: unknown device %d", i+1, owner))
			}
			for _, n := range r.Neighbours[owner] {
				switch {
				case n == owner:
					errs = append(errs, fmt.Sprintf("round %d: device %d lists itself as neighbour", i+1, owner))
				case !ids[n]:
					errs = append(errs, fmt.Sprintf("round %d: device %d has unknown neighbour %d", i+1, owner, n))
				}
			}
		}
		for j, s := range r.Scripts {
			if !ids[s.Device] {
				errs = append(errs, fmt.Sprintf("round %d script %d: unknown device %d", i+1, j+1, s.Device))
			}
			if _, err := script.Lookup(s.Script); err != nil {
				errs = append(errs, fmt.Sprintf("round %d script %d: unknown script %q", i+1, j+1, s.Script))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidScenario, strings.Join(errs, "; "))
	}
	return nil
}

// TotalRounds is the number of rounds a run plays, repeats included.
func (sc *Scenario) TotalRounds() int {
	repeat := sc.Repeat
	if repeat == 0 {
		repeat = 1
	}
	return len(sc.Rounds) * repeat
}

// Round returns 0-based round k, wrapping for repeats.
func (sc *Scenario) Round(k int) RoundSpec {
	return sc.Rounds[k%len(sc.Rounds)]
}

// DeviceIDs returns the device IDs sorted ascending.
func (sc *Scenario) DeviceIDs() []int {
	ids := make([]int, 0, len(sc.Devices))
	for _, d := range sc.Devices {
		ids = append(ids, d.ID)
	}
	sort.Ints(ids)
	return ids
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
