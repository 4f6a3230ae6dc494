package compiler

import (
	"strconv"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/deltasim/internal/value"
)

// CompileValue converts a concrete CUE value into a value.Value.
//
//	42, -1                 Integer
//	2.5                    Real (exact decimal text)
//	true                   Bool
//	"x"                    Symbol
//	"?x"                   Var x
//	null                   Undefined
//	[a, b]                 List
//	{head: "f", args: []}  Expr
//	{var: "x"}             Var
//	{symbol: "?x"}         Symbol, for names starting with "?"
//	{real: "0.1"}          Real
//	{undefined: true}      Undefined
func CompileValue(v cue.Value) (value.Value, error) {
	return compileValue(v, pathOf(v))
}

func compileValue(v cue.Value, field string) (value.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	switch v.Kind() {
	case cue.NullKind:
		return value.Undefined{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, fieldError(field, v.Pos(), "%v", err)
		}
		return value.Integer(i), nil
	case cue.FloatKind:
		text, err := v.MarshalJSON()
		if err != nil {
			return nil, formatCUEError(err)
		}
		r, err := value.NewReal(string(text))
		if err != nil {
			return nil, fieldError(field, v.Pos(), "%v", err)
		}
		return r, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if name, ok := strings.CutPrefix(s, "?"); ok && name != "" {
			return value.Var(name), nil
		}
		return value.Symbol(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := value.List{}
		for i := 0; iter.Next(); i++ {
			elem, err := compileValue(iter.Value(), indexField(field, i))
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		return compileValueStruct(v, field)
	default:
		return nil, fieldError(field, v.Pos(), "value must be concrete, got %v", v.IncompleteKind())
	}
}

func compileValueStruct(v cue.Value, field string) (value.Value, error) {
	if h := v.LookupPath(cue.ParsePath("head")); h.Exists() {
		head, err := h.String()
		if err != nil {
			return nil, fieldError(field+".head", h.Pos(), "head must be a string")
		}
		var args []value.Value
		if a := v.LookupPath(cue.ParsePath("args")); a.Exists() {
			list, err := compileValue(a, field+".args")
			if err != nil {
				return nil, err
			}
			l, ok := list.(value.List)
			if !ok {
				return nil, fieldError(field+".args", a.Pos(), "args must be a list")
			}
			args = l
		}
		return value.NewExpr(head, args...), nil
	}
	if s, ok, err := stringField(v, "var", field); ok || err != nil {
		return value.Var(s), err
	}
	if s, ok, err := stringField(v, "symbol", field); ok || err != nil {
		return value.Symbol(s), err
	}
	if s, ok, err := stringField(v, "real", field); ok || err != nil {
		if err != nil {
			return nil, err
		}
		r, err := value.NewReal(s)
		if err != nil {
			return nil, fieldError(field+".real", v.Pos(), "%v", err)
		}
		return r, nil
	}
	if v.LookupPath(cue.ParsePath("undefined")).Exists() {
		return value.Undefined{}, nil
	}
	return nil, fieldError(field, v.Pos(), "struct value needs one of head, var, symbol, real, undefined")
}

// stringField reads v.name as a string; ok reports whether it exists.
func stringField(v cue.Value, name, field string) (string, bool, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !f.Exists() {
		return "", false, nil
	}
	s, err := f.String()
	if err != nil {
		return "", true, fieldError(field+"."+name, f.Pos(), "%s must be a string", name)
	}
	return s, true, nil
}

func pathOf(v cue.Value) string {
	if p := v.Path().String(); p != "" {
		return p
	}
	return "value"
}

func indexField(field string, i int) string {
	return field + "[" + strconv.Itoa(i) + "]"
}
