package compiler

import (
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/deltasim/internal/theorem"
	"github.com/roach88/deltasim/internal/value"
)

// CompilePattern converts a CUE value into a theorem pattern.
//
//	"_"                            Any
//	"?x"                           Capture x, any kind
//	{capture: "x", kind: "bool"}   Capture x restricted to a kind
//	{capture: "x", kind: [...]}    Capture x restricted to several kinds
//	{head: "f", args: [...]}       expression f whose arguments match args
//	[p, q]                         list of exactly two elements
//	{lit: v}                       literal v, even when v looks like a pattern
//	any other scalar               literal
//
// The kind "numeric" stands for integer and real.
func CompilePattern(v cue.Value) (theorem.Pattern, error) {
	return compilePattern(v, pathOf(v))
}

func compilePattern(v cue.Value, field string) (theorem.Pattern, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	switch v.Kind() {
	case cue.StringKind:
		s, _ := v.String()
		if s == "_" {
			return theorem.Any{}, nil
		}
		if name, ok := strings.CutPrefix(s, "?"); ok && name != "" {
			return theorem.Capture{Name: name}, nil
		}
		return theorem.Literal{Value: value.Symbol(s)}, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		lp := theorem.ListPattern{}
		for i := 0; iter.Next(); i++ {
			elem, err := compilePattern(iter.Value(), indexField(field, i))
			if err != nil {
				return nil, err
			}
			lp.Elems = append(lp.Elems, elem)
		}
		return lp, nil
	case cue.StructKind:
		return compilePatternStruct(v, field)
	default:
		lit, err := compileValue(v, field)
		if err != nil {
			return nil, err
		}
		return theorem.Literal{Value: lit}, nil
	}
}

func compilePatternStruct(v cue.Value, field string) (theorem.Pattern, error) {
	if l := v.LookupPath(cue.ParsePath("lit")); l.Exists() {
		lit, err := compileValue(l, field+".lit")
		if err != nil {
			return nil, err
		}
		return theorem.Literal{Value: lit}, nil
	}

	if a := v.LookupPath(cue.ParsePath("any")); a.Exists() {
		return theorem.Any{}, nil
	}

	if name, ok, err := stringField(v, "capture", field); ok || err != nil {
		if err != nil {
			return nil, err
		}
		kinds, err := compileKinds(v, field)
		if err != nil {
			return nil, err
		}
		return theorem.Capture{Name: name, Kinds: kinds}, nil
	}

	if h := v.LookupPath(cue.ParsePath("head")); h.Exists() {
		head, err := h.String()
		if err != nil {
			return nil, fieldError(field+".head", h.Pos(), "head must be a string")
		}
		ep := theorem.ExprPattern{Head: head}
		if a := v.LookupPath(cue.ParsePath("args")); a.Exists() {
			iter, err := a.List()
			if err != nil {
				return nil, fieldError(field+".args", a.Pos(), "args must be a list")
			}
			for i := 0; iter.Next(); i++ {
				arg, err := compilePattern(iter.Value(), indexField(field+".args", i))
				if err != nil {
					return nil, err
				}
				ep.Args = append(ep.Args, arg)
			}
		}
		return ep, nil
	}

	return nil, fieldError(field, v.Pos(), "pattern struct needs one of lit, any, capture, head")
}

func compileKinds(v cue.Value, field string) ([]value.Kind, error) {
	k := v.LookupPath(cue.ParsePath("kind"))
	if !k.Exists() {
		return nil, nil
	}

	var names []string
	switch k.Kind() {
	case cue.StringKind:
		s, _ := k.String()
		names = []string{s}
	case cue.ListKind:
		iter, err := k.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return nil, fieldError(field+".kind", iter.Value().Pos(), "kind must be a string")
			}
			names = append(names, s)
		}
	default:
		return nil, fieldError(field+".kind", k.Pos(), "kind must be a string or a list of strings")
	}

	var kinds []value.Kind
	for _, name := range names {
		if name == "numeric" {
			kinds = append(kinds, value.KindInteger, value.KindReal)
			continue
		}
		kind, err := value.ParseKind(name)
		if err != nil {
			return nil, fieldError(field+".kind", k.Pos(), "%v", err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
