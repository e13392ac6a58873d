// Package cel exports key filters as CEL expressions so that a rule engine
// can apply them without this service.
package cel

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"

	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/query"
)

type CompileOptions struct {
	// NegationMatchesMissing makes NOT_EQUAL and NOT_CONTAINS hold for an
	// entity without a usable value, like the native evaluator's default.
	NegationMatchesMissing bool
}

type Compiler struct {
	env *cel.Env
}

func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(Library())
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Compiler{env: env}, nil
}

// Program is a compiled key filter expression.
type Program struct {
	Expression string
	program    cel.Program
}

// Compile translates keyFilters into one boolean CEL expression and checks
// it. Dynamic values are expected to be bound already; an unbound value
// falls back to its userValue or defaultValue.
func (c *Compiler) Compile(keyFilters []query.KeyFilter, opts CompileOptions) (*Program, error) {
	expression, err := Translate(keyFilters, opts)
	if err != nil {
		return nil, err
	}

	program, err := c.compileBool(expression)
	if err != nil {
		return nil, err
	}
	return &Program{Expression: expression, program: program}, nil
}

// ValidateFilterExpression checks that expression compiles against the
// library and yields a bool.
func (c *Compiler) ValidateFilterExpression(expression string) error {
	_, err := c.compileBool(expression)
	return err
}

func (c *Compiler) compileBool(expression string) (cel.Program, error) {
	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	program, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return program, nil
}

// Evaluate runs program against entity's latest values.
func (c *Compiler) Evaluate(ctx context.Context, program *Program, entity query.EntityData) (bool, error) {
	vars := map[string]any{
		LatestVariable: latestActivation(entity.Latest),
	}

	result, _, err := program.program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}
	return matched, nil
}

func latestActivation(latest query.LatestValues) map[string]map[string]string {
	out := make(map[string]map[string]string, len(latest))
	for keyType, values := range latest {
		bucket := make(map[string]string, len(values))
		for key, value := range values {
			bucket[key] = value.Value
		}
		out[string(keyType)] = bucket
	}
	return out
}

// Translate renders keyFilters as CEL source. Key filters are joined with &&;
// an empty set is "true".
func Translate(keyFilters []query.KeyFilter, opts CompileOptions) (string, error) {
	if len(keyFilters) == 0 {
		return "true", nil
	}

	parts := make([]string, 0, len(keyFilters))
	for i, keyFilter := range keyFilters {
		part, err := translatePredicate(keyFilter.Key, keyFilter.Predicate, opts)
		if err != nil {
			return "", fmt.Errorf("keyFilters[%d]: %w", i, err)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " && "), nil
}

func translatePredicate(key query.EntityKey, predicate query.KeyFilterPredicate, opts CompileOptions) (string, error) {
	switch p := predicate.(type) {
	case query.StringFilterPredicate:
		return translateString(key, p, opts)
	case query.NumericFilterPredicate:
		return translateNumeric(key, p, opts)
	case query.BooleanFilterPredicate:
		return translateBoolean(key, p, opts)
	case query.ComplexFilterPredicate:
		children := make([]query.KeyFilterPredicate, len(p.Predicates))
		copy(children, p.Predicates)
		return translateComplex(key, p.Operation, children, opts)
	case query.ComplexFilterPredicateInfo:
		children := make([]query.KeyFilterPredicate, 0, len(p.Predicates))
		for _, child := range p.Predicates {
			children = append(children, child.KeyFilterPredicate)
		}
		return translateComplex(key, p.Operation, children, opts)
	case nil:
		return "", pkgerrors.Configuration("predicate is required")
	}
	return "", pkgerrors.Configuration("unsupported predicate %T", predicate)
}

func translateComplex(key query.EntityKey, op query.ComplexOperation, children []query.KeyFilterPredicate, opts CompileOptions) (string, error) {
	var joiner string
	switch op {
	case query.ComplexOperationAnd:
		joiner = " && "
	case query.ComplexOperationOr:
		joiner = " || "
	default:
		return "", pkgerrors.Configuration("unknown complex operation %q", string(op))
	}
	if len(children) == 0 {
		return "", pkgerrors.Configuration("complex predicate %s has no children", op)
	}

	parts := make([]string, 0, len(children))
	for _, child := range children {
		part, err := translatePredicate(key, child, opts)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, joiner) + ")", nil
}

func lookupCall(fn string, key query.EntityKey) string {
	return fmt.Sprintf("%s(%s, %s, %s)", fn, LatestVariable, strconv.Quote(string(key.Type)), strconv.Quote(key.Key))
}

func missingVerdict(negation bool, opts CompileOptions) string {
	return strconv.FormatBool(negation && opts.NegationMatchesMissing)
}

func effective[T any](v query.FilterPredicateValue[T]) T {
	if v.UserValue != nil {
		return *v.UserValue
	}
	return v.DefaultValue
}

func translateString(key query.EntityKey, p query.StringFilterPredicate, opts CompileOptions) (string, error) {
	subject := lookupCall("keyValue", key)
	value := effective(p.Value)
	if p.IgnoreCase {
		subject = "toLower(" + subject + ")"
		value = strings.ToLower(value)
	}
	literal := strconv.Quote(value)

	var cmp string
	switch p.Operation {
	case query.StringOperationEqual:
		cmp = subject + " == " + literal
	case query.StringOperationNotEqual:
		cmp = subject + " != " + literal
	case query.StringOperationStartsWith:
		cmp = subject + ".startsWith(" + literal + ")"
	case query.StringOperationEndsWith:
		cmp = subject + ".endsWith(" + literal + ")"
	case query.StringOperationContains:
		cmp = subject + ".contains(" + literal + ")"
	case query.StringOperationNotContains:
		cmp = "!" + subject + ".contains(" + literal + ")"
	default:
		return "", pkgerrors.Configuration("unknown string operation %q", string(p.Operation))
	}

	return fmt.Sprintf("(%s ? %s : %s)", lookupCall("keyPresent", key), cmp, missingVerdict(p.Operation.Negation(), opts)), nil
}

func translateNumeric(key query.EntityKey, p query.NumericFilterPredicate, opts CompileOptions) (string, error) {
	var op string
	switch p.Operation {
	case query.NumericOperationEqual:
		op = "=="
	case query.NumericOperationNotEqual:
		op = "!="
	case query.NumericOperationGreater:
		op = ">"
	case query.NumericOperationLess:
		op = "<"
	case query.NumericOperationGreaterOrEqual:
		op = ">="
	case query.NumericOperationLessOrEqual:
		op = "<="
	default:
		return "", pkgerrors.Configuration("unknown numeric operation %q", string(p.Operation))
	}

	value := effective(p.Value)
	if math.IsNaN(value) {
		return "", pkgerrors.Configuration("numeric predicate value is NaN")
	}

	subject := lookupCall("keyValue", key)
	return fmt.Sprintf("(%s && isNumeric(%s) ? toNumeric(%s) %s %s : %s)",
		lookupCall("keyPresent", key), subject, subject, op, doubleLiteral(value),
		missingVerdict(p.Operation.Negation(), opts)), nil
}

func translateBoolean(key query.EntityKey, p query.BooleanFilterPredicate, opts CompileOptions) (string, error) {
	var op string
	switch p.Operation {
	case query.BooleanOperationEqual:
		op = "=="
	case query.BooleanOperationNotEqual:
		op = "!="
	default:
		return "", pkgerrors.Configuration("unknown boolean operation %q", string(p.Operation))
	}

	subject := lookupCall("keyValue", key)
	return fmt.Sprintf("(%s && isBoolean(%s) ? toBoolean(%s) %s %t : %s)",
		lookupCall("keyPresent", key), subject, subject, op, effective(p.Value),
		missingVerdict(p.Operation.Negation(), opts)), nil
}

// doubleLiteral renders f so that CEL parses it as a double, never an int.
func doubleLiteral(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return `double("Inf")`
	case math.IsInf(f, -1):
		return `double("-Inf")`
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
