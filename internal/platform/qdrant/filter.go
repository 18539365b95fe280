package qdrant

import (
	"fmt"
	"strings"
)

// Condition is a payload field predicate. Exactly one of Value or Any is set.
type Condition struct {
	Key   string
	Value any
	Any   []any
}

// MatchValue matches key equal to value.
func MatchValue(key string, value any) Condition {
	return Condition{Key: key, Value: value}
}

func MatchAny(key string, values ...any) Condition {
	return Condition{Key: key, Any: values}
}

// Filter is a conjunction of Must conditions minus any MustNot condition.
type Filter struct {
	Must    []Condition
	MustNot []Condition
}

func (f Filter) IsEmpty() bool {
	return len(f.Must) == 0 && len(f.MustNot) == 0
}

func (c Condition) validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return opErr("filter_translate", OperationErrorValidation, "condition key is required", nil)
	}
	if c.Any != nil {
		if c.Value != nil {
			return opErr("filter_translate", OperationErrorValidation,
				fmt.Sprintf("condition %q sets both value and any", c.Key), nil)
		}
		if len(c.Any) == 0 {
			return opErr("filter_translate", OperationErrorValidation,
				fmt.Sprintf("condition %q: any cannot be empty", c.Key), nil)
		}
		for _, v := range c.Any {
			if !isScalar(v) {
				return opErr("filter_translate", OperationErrorUnsupportedFilter,
					fmt.Sprintf("condition %q: unsupported value type %T", c.Key, v), nil)
			}
		}
		return nil
	}
	if !isScalar(c.Value) {
		return opErr("filter_translate", OperationErrorUnsupportedFilter,
			fmt.Sprintf("condition %q: unsupported value type %T", c.Key, c.Value), nil)
	}
	return nil
}

func (c Condition) wire() map[string]any {
	match := map[string]any{"value": c.Value}
	if c.Any != nil {
		match = map[string]any{"any": c.Any}
	}
	return map[string]any{"key": c.Key, "match": match}
}

// wire renders the filter in Qdrant's JSON form with the namespace condition
// always present.
func (f Filter) wire(namespace string) (map[string]any, error) {
	must := []any{MatchValue(payloadNamespaceKey, namespace).wire()}
	for _, c := range f.Must {
		if err := c.validate(); err != nil {
			return nil, err
		}
		must = append(must, c.wire())
	}
	out := map[string]any{"must": must}
	if len(f.MustNot) > 0 {
		not := make([]any, 0, len(f.MustNot))
		for _, c := range f.MustNot {
			if err := c.validate(); err != nil {
				return nil, err
			}
			not = append(not, c.wire())
		}
		out["must_not"] = not
	}
	return out, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, uint, uint32, uint64:
		return true
	default:
		return false
	}
}
