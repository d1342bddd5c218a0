// Package convert provides the unit conversion tools convert_distance and convert_weight.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/skosovsky/tooldesk"
)

// Conversion factors.
const (
	KilometersPerMile  = 1.60934
	MetersPerMile      = 1609.34
	MetersPerKilometer = 1000
	PoundsPerKilogram  = 2.20462
)

// ErrUnsupported is returned for unit pairs without a conversion.
var ErrUnsupported = errors.New("unsupported conversion")

// unitTable converts between canonical units; factors[{from, to}] multiplies a value in from.
type unitTable struct {
	aliases map[string]string
	factors map[[2]string]float64
}

func newUnitTable(aliases map[string]string, direct map[[2]string]float64) unitTable {
	t := unitTable{aliases: aliases, factors: make(map[[2]string]float64, 2*len(direct))}
	for pair, f := range direct {
		t.factors[pair] = f
		t.factors[[2]string{pair[1], pair[0]}] = 1 / f
	}
	return t
}

func (t unitTable) canonical(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if c, ok := t.aliases[u]; ok {
		return c
	}
	return u
}

func (t unitTable) convert(value float64, from, to string) (float64, error) {
	f, ok := t.factors[[2]string{t.canonical(from), t.canonical(to)}]
	if !ok {
		return 0, fmt.Errorf("%w: %s to %s", ErrUnsupported, from, to)
	}
	return value * f, nil
}

var distances = newUnitTable(
	map[string]string{
		"mi": "miles", "mile": "miles",
		"km": "kilometers", "kilometer": "kilometers",
		"m": "meters", "meter": "meters",
	},
	map[[2]string]float64{
		{"miles", "kilometers"}:  KilometersPerMile,
		{"miles", "meters"}:      MetersPerMile,
		{"kilometers", "meters"}: MetersPerKilometer,
	},
)

var weights = newUnitTable(
	map[string]string{
		"kg": "kilograms", "kilogram": "kilograms",
		"lb": "pounds", "lbs": "pounds", "pound": "pounds",
	},
	map[[2]string]float64{
		{"kilograms", "pounds"}: PoundsPerKilogram,
	},
)

// Distance converts value between miles, kilometers and meters. Units are case-insensitive and
// accept the usual abbreviations.
func Distance(value float64, from, to string) (float64, error) {
	return distances.convert(value, from, to)
}

// Weight converts value between kilograms and pounds.
func Weight(value float64, from, to string) (float64, error) {
	return weights.convert(value, from, to)
}

// Args are the arguments of both conversion tools.
type Args struct {
	Value    float64 `json:"value" description:"The quantity to convert."`
	FromUnit string  `json:"from_unit" description:"The unit of value."`
	ToUnit   string  `json:"to_unit" description:"The unit to convert to."`
}

// describe renders a conversion result the way the tools report it to the model.
func describe(value, result float64, from, to string, err error) string {
	if err != nil {
		return fmt.Sprintf("Conversion from %s to %s is not supported.", from, to)
	}
	return fmt.Sprintf("%s %s is equal to %.2f %s.", formatValue(value), from, result, to)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DistanceTool returns the convert_distance tool.
func DistanceTool() tooldesk.ToolSpec {
	return tooldesk.MustTool("convert_distance",
		"Convert a distance between miles, kilometers (km) and meters (m).",
		func(_ context.Context, a Args) string {
			r, err := Distance(a.Value, a.FromUnit, a.ToUnit)
			return describe(a.Value, r, a.FromUnit, a.ToUnit, err)
		})
}

// WeightTool returns the convert_weight tool.
func WeightTool() tooldesk.ToolSpec {
	return tooldesk.MustTool("convert_weight",
		"Convert a weight between kilograms (kg) and pounds (lbs).",
		func(_ context.Context, a Args) string {
			r, err := Weight(a.Value, a.FromUnit, a.ToUnit)
			return describe(a.Value, r, a.FromUnit, a.ToUnit, err)
		})
}

// Tools returns both conversion tools.
func Tools() []tooldesk.ToolSpec {
	return []tooldesk.ToolSpec{DistanceTool(), WeightTool()}
}
