// Package query filters stored records with expr-lang expressions.
//
// An expression sees the record's fields as variables, plus "kind" (the
// variant name) and "key" (the store key) unless a field of that name exists.
// Fields a record lacks evaluate to nil:
//
//	kind == "Event" && len(speakers) > 1
//	key startsWith "venue." && name contains "Portland"
package query

import (
	"context"
	"errors"
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/jacentio/schedule/record"
)

// ErrEmptyExpression is returned by Compile for a blank expression.
var ErrEmptyExpression = errors.New("schedule: expression must not be empty")

// Filter is a compiled record predicate.
type Filter struct {
	program    *exprvm.Program
	expression string
}

// Compile parses expression into a Filter.
func Compile(expression string) (*Filter, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	return &Filter{program: program, expression: expression}, nil
}

// String returns the source expression.
func (f *Filter) String() string { return f.expression }

// Match reports whether v satisfies the filter. The record's serial field
// stands in for its key.
func (f *Filter) Match(v record.Variant) (bool, error) {
	key, _ := v.Attr("serial")
	s, _ := key.(string)
	return f.match(s, v)
}

func (f *Filter) match(key string, v record.Variant) (bool, error) {
	result, err := exprlang.Run(f.program, environment(key, v))
	if err != nil {
		return false, fmt.Errorf("evaluate %q on %s: %w", f.expression, key, err)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("evaluate %q on %s: result is %T, want bool", f.expression, key, result)
	}
	return ok, nil
}

func environment(key string, v record.Variant) map[string]any {
	env := map[string]any(v.Attrs())
	if env == nil {
		env = make(map[string]any)
	}
	if _, ok := env["kind"]; !ok {
		env["kind"] = v.Kind()
	}
	if _, ok := env["key"]; !ok {
		env["key"] = key
	}
	return env
}

// Source is a store whose keys can be listed.
type Source interface {
	record.Store
	record.Lister
}

// Select returns the keys of all records in s matching f, in key order.
func Select(ctx context.Context, s Source, f *Filter) ([]string, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	var matched []string
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := s.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		ok, err := f.match(key, v)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, key)
		}
	}
	return matched, nil
}
