package airquality

import (
	"encoding/json"
	"maps"
	"time"
)

// RecordTimeLayout is the wire format of recordTime.
const RecordTimeLayout = "2006-01-02 15:04:05"

// Payload is the message published each successful cycle.
type Payload struct {
	Readings   ReadingSet
	Serial     string
	RecordTime string
}

// Build stamps a validated reading set with the device serial and now, in
// local time at second precision.
func Build(readings ReadingSet, serial string, now time.Time) Payload {
	return Payload{
		Readings:   maps.Clone(readings),
		Serial:     serial,
		RecordTime: now.Local().Format(RecordTimeLayout),
	}
}

// MarshalJSON flattens the readings next to serial and recordTime.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Readings)+2)
	for k, v := range p.Readings {
		out[k] = v
	}
	out["serial"] = p.Serial
	out["recordTime"] = p.RecordTime
	return json.Marshal(out)
}
