package generate

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/dilla-go/dilla/internal/schema"
)

// Expressions evaluates policy expressions against an environment bound to
// one run's generators. Compiled programs are cached by source.
type Expressions struct {
	gen   *Generators
	cache map[string]*vm.Program
}

// NewExpressions returns an evaluator over g.
func NewExpressions(g *Generators) *Expressions {
	return &Expressions{gen: g, cache: make(map[string]*vm.Program)}
}

// env exposes the generators to expressions. policy is nil unless the field
// policy asks for it.
func expressionEnv(g *Generators, policy *schema.FieldPolicy) map[string]any {
	return map[string]any{
		"word":    g.src.Word,
		"words":   g.src.Words,
		"digits":  g.src.Digits,
		"letters": g.src.Letters,
		"between": g.src.Between,
		"coin":    g.src.Coin,
		"pick": func(items []any) any {
			if len(items) == 0 {
				return nil
			}
			return items[g.src.IntN(len(items))]
		},
		"email":   g.Email,
		"url":     g.URL,
		"uuid":    g.UUID,
		"hashKey": g.HashKey,
		"zip":     g.Zip,
		"policy":  policy,
	}
}

// CompileExpression checks an expression against the generator environment.
func CompileExpression(source string) (*vm.Program, error) {
	env := expressionEnv(NewGenerators(NewSource(1), nil, nil, "", nil), nil)
	prog, err := expr.Compile(source, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return prog, nil
}

// Eval runs the policy's expression and returns its value.
func (e *Expressions) Eval(p *schema.FieldPolicy) (any, error) {
	prog, ok := e.cache[p.Expression]
	if !ok {
		var err error
		prog, err = CompileExpression(p.Expression)
		if err != nil {
			return nil, err
		}
		e.cache[p.Expression] = prog
	}

	var policy *schema.FieldPolicy
	if p.WantsPolicy {
		policy = p
	}
	result, err := expr.Run(prog, expressionEnv(e.gen, policy))
	if err != nil {
		return nil, fmt.Errorf("evaluate expression: %w", err)
	}
	return result, nil
}

// ValidateExpressions compiles every policy expression in the catalog.
func ValidateExpressions(c *schema.Catalog) error {
	var problems []string
	for _, m := range c.Models() {
		if m.Policy == nil {
			continue
		}
		for name, fp := range m.Policy.Fields {
			if fp == nil || fp.Expression == "" {
				continue
			}
			if _, err := CompileExpression(fp.Expression); err != nil {
				problems = append(problems, fmt.Sprintf("%s.%s: %v", m.Key(), name, err))
			}
		}
	}
	if len(problems) > 0 {
		return &schema.ValidationError{Problems: problems}
	}
	return nil
}
