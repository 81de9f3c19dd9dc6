// Package airquality turns NILU station records into the flat reading message
// published on the broker.
package airquality

import (
	"encoding/json"
	"fmt"
)

// Record is one decoded object of the API response array.
type Record map[string]any

// ReadingSet maps canonical reading keys to values for one cycle.
type ReadingSet map[string]float64

// Pollutant ties a component label used by the API to the key it is
// published under.
type Pollutant struct {
	Label string
	Key   string
}

var (
	PM10 = Pollutant{Label: "PM10", Key: "airquality_pm10"}
	PM25 = Pollutant{Label: "PM2.5", Key: "airquality_pm25"}
	NO2  = Pollutant{Label: "NO2", Key: "airquality_no2"}
)

// Pollutants lists every recognised pollutant.
var Pollutants = []Pollutant{PM10, PM25, NO2}

const valueField = "value"

func lookup(label string) (Pollutant, bool) {
	for _, p := range Pollutants {
		if p.Label == label {
			return p, true
		}
	}
	return Pollutant{}, false
}

// Transform scans records for fields whose value is a known pollutant label and
// stores that record's "value" under the pollutant key. A later record of the
// same kind overwrites an earlier one. Records naming no known pollutant are
// skipped.
func Transform(records []Record) (ReadingSet, error) {
	readings := make(ReadingSet)

	for i, rec := range records {
		for field, raw := range rec {
			if field == valueField {
				continue
			}
			label, ok := raw.(string)
			if !ok {
				continue
			}
			p, ok := lookup(label)
			if !ok {
				continue
			}

			v, present := rec[valueField]
			if !present {
				return nil, fmt.Errorf("%w: record %d (%s) has no %q field", ErrTransform, i, p.Label, valueField)
			}
			num, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("%w: record %d (%s): %v", ErrTransform, i, p.Label, err)
			}
			readings[p.Key] = num
		}
	}

	return readings, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not a number", v, v)
	}
}

// Validate rejects an empty reading set. Values are not range checked.
func Validate(readings ReadingSet) error {
	if len(readings) == 0 {
		return ErrValidation
	}
	return nil
}
