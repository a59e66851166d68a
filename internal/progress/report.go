package progress

import (
	"encoding/json"
	"fmt"
)

// Report is an immutable snapshot of progress emitted after one Update has
// been applied.
type Report struct {
	value     int64
	target    int64
	hasTarget bool
}

// NewReport builds a Report without a target.
func NewReport(value int64) Report {
	return Report{value: value}
}

// WithTarget returns a copy of r with the target set.
func (r Report) WithTarget(target int64) Report {
	r.target = target
	r.hasTarget = true
	return r
}

// Value returns the current progress value.
func (r Report) Value() int64 {
	return r.value
}

// Target returns the goal and whether one has been set.
func (r Report) Target() (int64, bool) {
	return r.target, r.hasTarget
}

// Percent returns the integer part of 100*value/target. It is undefined when
// no target is set or the target is zero.
func (r Report) Percent() (int64, bool) {
	if !r.hasTarget || r.target == 0 {
		return 0, false
	}
	return 100 * r.value / r.target, true
}

// Done reports whether the target is set and the value has reached it exactly.
func (r Report) Done() bool {
	return r.hasTarget && r.value == r.target
}

func (r Report) String() string {
	if !r.hasTarget {
		return fmt.Sprintf("%d", r.value)
	}
	if pct, ok := r.Percent(); ok {
		return fmt.Sprintf("%d/%d (%d%%)", r.value, r.target, pct)
	}
	return fmt.Sprintf("%d/%d", r.value, r.target)
}

type reportJSON struct {
	Value   int64  `json:"value"`
	Target  *int64 `json:"target,omitempty"`
	Percent *int64 `json:"percent,omitempty"`
	Done    bool   `json:"done"`
}

// MarshalJSON encodes the report with optional fields omitted when undefined.
func (r Report) MarshalJSON() ([]byte, error) {
	out := reportJSON{Value: r.value, Done: r.Done()}
	if target, ok := r.Target(); ok {
		out.Target = &target
	}
	if pct, ok := r.Percent(); ok {
		out.Percent = &pct
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// UnmarshalJSON restores value and target; percent and done are derived.
func (r *Report) UnmarshalJSON(data []byte) error {
	var in reportJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("unmarshal report: %w", err)
	}
	*r = NewReport(in.Value)
	if in.Target != nil {
		*r = r.WithTarget(*in.Target)
	}
	return nil
}
