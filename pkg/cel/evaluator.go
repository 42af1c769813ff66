package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"wacrm/internal/segment"
)

// Evaluator compiles audience predicates into CEL programs that run against
// contact records held in memory.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(contactVar, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// Program is a compiled predicate.
type Program struct {
	expression string
	program    cel.Program
}

func (p *Program) Expression() string {
	return p.expression
}

// Matches reports whether the contact record satisfies the program.
func (p *Program) Matches(ctx context.Context, record map[string]interface{}) (bool, error) {
	result, _, err := p.program.ContextEval(ctx, map[string]interface{}{
		contactVar: withDefaults(record),
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}
	return matched, nil
}

func (e *Evaluator) CompilePredicate(p segment.Predicate) (*Program, error) {
	expression, err := Render(p)
	if err != nil {
		return nil, fmt.Errorf("failed to render predicate: %w", err)
	}
	return e.CompileExpression(expression)
}

func (e *Evaluator) CompileExpression(expression string) (*Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Program{expression: expression, program: program}, nil
}

// withDefaults makes sure the map keys every rendered expression indexes
// into are present, without touching the caller's map.
func withDefaults(record map[string]interface{}) map[string]interface{} {
	_, hasCustom := record[customFieldsKey]
	_, hasTags := record[tagsKey]
	if hasCustom && hasTags {
		return record
	}

	out := make(map[string]interface{}, len(record)+2)
	for k, v := range record {
		out[k] = v
	}
	if !hasCustom {
		out[customFieldsKey] = map[string]interface{}{}
	}
	if !hasTags {
		out[tagsKey] = []interface{}{}
	}
	return out
}
