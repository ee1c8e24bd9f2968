package recipe

import (
	"fmt"
	"math"
)

// Validate checks the shape every analysis relies on. It reports the
// first problem found.
func Validate(records []Record) error {
	if len(records) == 0 {
		return &InputError{Reason: "empty record set"}
	}
	ids := make(map[string]int, len(records))
	for i, r := range records {
		row := i + 1
		if r.ID == "" {
			return &InputError{Row: row, Field: "id", Reason: "missing"}
		}
		if prev, dup := ids[r.ID]; dup {
			return &InputError{Row: row, Field: "id", Reason: fmt.Sprintf("duplicate of row %d (%q)", prev, r.ID)}
		}
		ids[r.ID] = row
		if r.Year <= 0 {
			return &InputError{Row: row, Field: "year", Reason: fmt.Sprintf("must be positive, got %d", r.Year)}
		}
		if !r.Season.Valid() {
			return &InputError{Row: row, Field: "season", Reason: fmt.Sprintf("unknown season %q", r.Season)}
		}
		for _, m := range Metrics {
			p, _ := m.ptr(r)
			if p == nil {
				continue
			}
			if math.IsNaN(*p) || math.IsInf(*p, 0) {
				return &InputError{Row: row, Field: string(m), Reason: "not a finite number"}
			}
			if *p < 0 {
				return &InputError{Row: row, Field: string(m), Reason: fmt.Sprintf("negative value %g", *p)}
			}
		}
	}
	return nil
}
