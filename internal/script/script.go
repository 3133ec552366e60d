// Package script defines the computations devices run on the readings
// collected for one location, plus a small registry of built-in scripts that
// scenario files refer to by name.
package script

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Script computes one value from the readings gathered for a location.
//
// Values arrive in neighbour order with the owning device's reading last.
// Implementations must not retain or modify the slice.
type Script interface {
	Run(values []float64) (float64, error)
}

// Func adapts an ordinary function to the Script interface.
type Func func(values []float64) (float64, error)

// Run calls f.
func (f Func) Run(values []float64) (float64, error) {
	return f(values)
}

// Named pairs a script with the name it is registered under.
type Named struct {
	Name string
	Script
}

// String returns the registered name.
func (n Named) String() string {
	return n.Name
}

// Built-in scripts.
var (
	Average = Func(average)
	Min     = Func(minimum)
	Max     = Func(maximum)
	Median  = Func(median)
	Sum     = Func(sum)
)

var builtins = map[string]Script{
	"average": Average,
	"min":     Min,
	"max":     Max,
	"median":  Median,
	"sum":     Sum,
}

// Lookup returns the built-in script registered under name (case-insensitive).
func Lookup(name string) (Named, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	s, ok := builtins[key]
	if !ok {
		return Named{}, fmt.Errorf("%w: %q", ErrUnknownScript, name)
	}
	return Named{Name: key, Script: s}, nil
}

// Names returns the registered script names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func average(values []float64) (float64, error) {
	total, err := sum(values)
	if err != nil {
		return 0, err
	}
	return total / float64(len(values)), nil
}

func sum(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoValues
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total, nil
}

func minimum(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoValues
	}
	m := math.Inf(1)
	for _, v := range values {
		m = math.Min(m, v)
	}
	return m, nil
}

func maximum(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoValues
	}
	m := math.Inf(-1)
	for _, v := range values {
		m = math.Max(m, v)
	}
	return m, nil
}

func median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrNoValues
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	return (sorted[mid-1] + sorted[mid]) / 2, nil
}
