package cel

import (
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"

	"entityquery/pkg/query"
)

// LatestVariable is the activation variable holding an entity's latest
// values as map(keyType, map(key, value)).
const LatestVariable = "latest"

var latestType = cel.MapType(cel.StringType, cel.MapType(cel.StringType, cel.StringType))

// Library declares the variables and functions that exported key filter
// expressions use. Rule engines that run those expressions must install it.
//
//	keyPresent(latest, keyType, key) bool
//	keyValue(latest, keyType, key)   string
//	isNumeric(string) bool, toNumeric(string) double
//	isBoolean(string) bool, toBoolean(string) bool
//	toLower(string) string
func Library() cel.EnvOption {
	return cel.Lib(entityLib{})
}

type entityLib struct{}

func (entityLib) CompileOptions() []cel.EnvOption {
	lookupArgs := []*cel.Type{latestType, cel.StringType, cel.StringType}
	return []cel.EnvOption{
		cel.Variable(LatestVariable, latestType),
		cel.Function("keyPresent",
			cel.Overload("keyPresent_latest_string_string", lookupArgs, cel.BoolType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					_, ok := lookupLatest(args)
					return types.Bool(ok)
				}),
			),
		),
		cel.Function("keyValue",
			cel.Overload("keyValue_latest_string_string", lookupArgs, cel.StringType,
				cel.FunctionBinding(func(args ...ref.Val) ref.Val {
					value, _ := lookupLatest(args)
					return types.String(value)
				}),
			),
		),
		cel.Function("isNumeric",
			cel.Overload("isNumeric_string", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					_, ok := parseNumber(v)
					return types.Bool(ok)
				}),
			),
		),
		cel.Function("toNumeric",
			cel.Overload("toNumeric_string", []*cel.Type{cel.StringType}, cel.DoubleType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					f, ok := parseNumber(v)
					if !ok {
						return types.NewErr("toNumeric: %v is not a number", v.Value())
					}
					return types.Double(f)
				}),
			),
		),
		cel.Function("isBoolean",
			cel.Overload("isBoolean_string", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					_, ok := parseBool(v)
					return types.Bool(ok)
				}),
			),
		),
		cel.Function("toBoolean",
			cel.Overload("toBoolean_string", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					b, ok := parseBool(v)
					if !ok {
						return types.NewErr("toBoolean: %v is not a boolean", v.Value())
					}
					return types.Bool(b)
				}),
			),
		),
		cel.Function("toLower",
			cel.Overload("toLower_string", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					s, _ := v.(types.String)
					return types.String(strings.ToLower(string(s)))
				}),
			),
		),
	}
}

func (entityLib) ProgramOptions() []cel.ProgramOption {
	return nil
}

// lookupLatest follows the same bucket order as query.LatestValues.Lookup.
func lookupLatest(args []ref.Val) (string, bool) {
	if len(args) != 3 {
		return "", false
	}
	latest, ok := args[0].(traits.Mapper)
	if !ok {
		return "", false
	}
	keyType, _ := args[1].(types.String)
	key, _ := args[2].(types.String)

	entityKey := query.EntityKey{Type: query.EntityKeyType(keyType), Key: string(key)}
	for _, bucket := range entityKey.LookupOrder() {
		values, found := latest.Find(types.String(bucket))
		if !found {
			continue
		}
		bucketMap, ok := values.(traits.Mapper)
		if !ok {
			continue
		}
		value, found := bucketMap.Find(key)
		if !found {
			continue
		}
		if s, ok := value.(types.String); ok {
			return string(s), true
		}
	}
	return "", false
}

func parseNumber(v ref.Val) (float64, bool) {
	s, ok := v.(types.String)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	return f, err == nil
}

func parseBool(v ref.Val) (bool, bool) {
	s, ok := v.(types.String)
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
