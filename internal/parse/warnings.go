package parse

import (
	"encoding/json"
	"fmt"
)

// Warning records one non-fatal anomaly: a record that was skipped or a
// field that could not be read. Warnings ride along with the parsed batch;
// they never abort it.
type Warning struct {
	Source string `json:"source"` // which payload the anomaly came from
	Detail string `json:"detail"`
}

// Warnings accumulates parse anomalies for one batch.
type Warnings []Warning

// Addf appends one formatted warning.
func (w *Warnings) Addf(source, format string, args ...any) {
	*w = append(*w, Warning{Source: source, Detail: fmt.Sprintf(format, args...)})
}

// flexID tolerates the platform's habit of sending ids as either JSON
// numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = flexID(s)
	return nil
}

func (f flexID) String() string { return string(f) }
