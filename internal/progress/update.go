package progress

import "fmt"

// Kind identifies the effect an Update has on the progress state.
type Kind uint8

// Supported update kinds.
const (
	KindIncrement Kind = iota + 1
	KindAdd
	KindSetValue
	KindIncrementTarget
	KindAddTarget
	KindSetTarget
)

var kindNames = map[Kind]string{
	KindIncrement:       "increment",
	KindAdd:             "add",
	KindSetValue:        "set_value",
	KindIncrementTarget: "increment_target",
	KindAddTarget:       "add_target",
	KindSetTarget:       "set_target",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps the snake_case name of a kind back to its value.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown update kind %q", name)
}

// Update is a single instruction sent by a producer. Amount is ignored by
// KindIncrement and KindIncrementTarget. No range checks are applied.
type Update struct {
	Kind   Kind
	Amount int64
}

// state is owned by the aggregator goroutine and never shared.
type state struct {
	value     int64
	target    int64
	hasTarget bool
}

func (s *state) apply(u Update) {
	switch u.Kind {
	case KindIncrement:
		s.value++
	case KindAdd:
		s.value += u.Amount
	case KindSetValue:
		s.value = u.Amount
	case KindIncrementTarget:
		s.addTarget(1)
	case KindAddTarget:
		s.addTarget(u.Amount)
	case KindSetTarget:
		s.target = u.Amount
		s.hasTarget = true
	}
}

func (s *state) addTarget(n int64) {
	if !s.hasTarget {
		s.target = 0
		s.hasTarget = true
	}
	s.target += n
}

func (s *state) report() Report {
	return Report{value: s.value, target: s.target, hasTarget: s.hasTarget}
}
