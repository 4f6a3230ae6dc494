package value

import (
	"fmt"
	"math"
	"strconv"
)

// FromGo converts a decoded YAML/JSON/CUE scalar tree into a Value.
//
// Mapping:
//
//	int, int64, uint64    Integer
//	float64               Integer when integral, otherwise Real
//	string                Symbol
//	bool                  Bool
//	[]any                 List
//	map{"head","args"}    Expr
//	map{"var"}            Var
//	map{"real"}           Real
//	map{"undefined"}      Undefined
//	nil                   Undefined
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Undefined{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Integer(val), nil
	case int64:
		return Integer(val), nil
	case int32:
		return Integer(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d out of range", val)
		}
		return Integer(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return Integer(int64(val)), nil
		}
		return NewReal(strconv.FormatFloat(val, 'f', -1, 64))
	case string:
		return Symbol(val), nil
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			e, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = e
		}
		return out, nil
	case map[string]any:
		return mapFromGo(val)
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func mapFromGo(m map[string]any) (Value, error) {
	if _, ok := m["undefined"]; ok {
		return Undefined{}, nil
	}
	if name, ok := m["var"]; ok {
		s, ok := name.(string)
		if !ok {
			return nil, fmt.Errorf("var name must be a string, got %T", name)
		}
		return Var(s), nil
	}
	if lit, ok := m["real"]; ok {
		switch r := lit.(type) {
		case string:
			return NewReal(r)
		case float64:
			return NewReal(strconv.FormatFloat(r, 'f', -1, 64))
		case int:
			return RealFromInt(int64(r)), nil
		default:
			return nil, fmt.Errorf("real literal must be a string or number, got %T", lit)
		}
	}
	rawHead, ok := m["head"]
	if !ok {
		return nil, fmt.Errorf("map is not a value: expected one of head, var, real, undefined")
	}
	head, ok := rawHead.(string)
	if !ok || head == "" {
		return nil, fmt.Errorf("expr head must be a non-empty string")
	}
	var args []Value
	if rawArgs, ok := m["args"]; ok && rawArgs != nil {
		list, ok := rawArgs.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: args must be a list, got %T", head, rawArgs)
		}
		for i, a := range list {
			v, err := FromGo(a)
			if err != nil {
				return nil, fmt.Errorf("%s.args[%d]: %w", head, i, err)
			}
			args = append(args, v)
		}
	}
	return NewExpr(head, args...), nil
}

// ToGo converts v into plain Go data suitable for YAML/JSON output and for
// comparison against decoded expectations. It is the inverse of FromGo.
func ToGo(v Value) any {
	switch val := OrUndefined(v).(type) {
	case Undefined:
		return map[string]any{"undefined": true}
	case Integer:
		return int64(val)
	case Bool:
		return bool(val)
	case Symbol:
		return string(val)
	case Var:
		return map[string]any{"var": string(val)}
	case Real:
		return map[string]any{"real": val.canonicalText()}
	case Expr:
		args := make([]any, len(val.Args))
		for i, a := range val.Args {
			args[i] = ToGo(a)
		}
		return map[string]any{"head": val.Head, "args": args}
	case List:
		out := make([]any, len(val))
		for i, a := range val {
			out[i] = ToGo(a)
		}
		return out
	default:
		return nil
	}
}
