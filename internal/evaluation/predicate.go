package evaluation

import (
	"strings"

	"entityquery/internal/constants"
	pkgerrors "entityquery/pkg/errors"
	"entityquery/pkg/query"
)

// MissingValuePolicy decides how a leaf predicate treats an entity that has
// no usable value for the key.
type MissingValuePolicy string

const (
	// MissingNegationMatches lets NOT_EQUAL and NOT_CONTAINS match a missing
	// value; every other operation fails.
	MissingNegationMatches MissingValuePolicy = constants.MissingValueNegationMatches
	// MissingNeverMatches fails every operation on a missing value.
	MissingNeverMatches MissingValuePolicy = constants.MissingValueNeverMatches
)

func (p MissingValuePolicy) verdict(negation bool) bool {
	return negation && p != MissingNeverMatches
}

// MatchString applies op to subject and value. With ignoreCase both sides
// are lower-cased before comparison.
func MatchString(op query.StringOperation, subject, value string, ignoreCase bool) (bool, error) {
	if ignoreCase {
		subject = strings.ToLower(subject)
		value = strings.ToLower(value)
	}
	switch op {
	case query.StringOperationEqual:
		return subject == value, nil
	case query.StringOperationNotEqual:
		return subject != value, nil
	case query.StringOperationStartsWith:
		return strings.HasPrefix(subject, value), nil
	case query.StringOperationEndsWith:
		return strings.HasSuffix(subject, value), nil
	case query.StringOperationContains:
		return strings.Contains(subject, value), nil
	case query.StringOperationNotContains:
		return !strings.Contains(subject, value), nil
	}
	return false, pkgerrors.Configuration("unknown string operation %q", string(op))
}

// MatchNumeric compares as float64 with exact equality.
func MatchNumeric(op query.NumericOperation, subject, value float64) (bool, error) {
	switch op {
	case query.NumericOperationEqual:
		return subject == value, nil
	case query.NumericOperationNotEqual:
		return subject != value, nil
	case query.NumericOperationGreater:
		return subject > value, nil
	case query.NumericOperationLess:
		return subject < value, nil
	case query.NumericOperationGreaterOrEqual:
		return subject >= value, nil
	case query.NumericOperationLessOrEqual:
		return subject <= value, nil
	}
	return false, pkgerrors.Configuration("unknown numeric operation %q", string(op))
}

func MatchBoolean(op query.BooleanOperation, subject, value bool) (bool, error) {
	switch op {
	case query.BooleanOperationEqual:
		return subject == value, nil
	case query.BooleanOperationNotEqual:
		return subject != value, nil
	}
	return false, pkgerrors.Configuration("unknown boolean operation %q", string(op))
}

// subject is the left-hand side of every leaf under one key filter.
type subject struct {
	raw     string
	present bool
}

func lookupSubject(entity query.EntityData, key query.EntityKey) subject {
	value, ok := entity.Latest.Lookup(key)
	if !ok {
		return subject{}
	}
	return subject{raw: value.Value, present: true}
}

func (s subject) number() (float64, bool) {
	if !s.present {
		return 0, false
	}
	return parseNumber(s.raw)
}

func (s subject) boolean() (bool, bool) {
	if !s.present {
		return false, false
	}
	return parseBool(s.raw)
}
