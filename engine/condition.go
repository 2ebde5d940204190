package engine

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// ConditionData is the typed operator input for a condition step: `value`
// always arrives as a string from the flow source; the resolved context
// value (`ctx`) may be any tagged Kind.
type ConditionData struct {
	Variable string
	Operator string
	Value    string
}

// EvaluateCondition resolves Variable against ctx and applies Operator's
// coercion rules. Missing or malformed condition data (absent variable or
// unknown operator) evaluates to false with a warning.
func EvaluateCondition(ctx Value, cond ConditionData, logger *slog.Logger) bool {
	if cond.Variable == "" {
		logger.Warn("condition missing variable", "operator", cond.Operator)
		return false
	}

	resolved := ResolvePath(ctx, cond.Variable)

	switch cond.Operator {
	case "equals":
		return smartEquals(resolved, cond.Value)
	case "not_equals":
		return !smartEquals(resolved, cond.Value)
	case "greater_than":
		return numericCompare(resolved, cond.Value, logger, func(a, b float64) bool { return a > b })
	case "less_than":
		return numericCompare(resolved, cond.Value, logger, func(a, b float64) bool { return a < b })
	case "greater_equals":
		return numericCompare(resolved, cond.Value, logger, func(a, b float64) bool { return a >= b })
	case "less_equals":
		return numericCompare(resolved, cond.Value, logger, func(a, b float64) bool { return a <= b })
	case "contains":
		if resolved.IsNullish() {
			return false
		}
		return strings.Contains(resolved.AsString(), cond.Value)
	case "starts_with":
		if resolved.IsNullish() {
			return false
		}
		return strings.HasPrefix(resolved.AsString(), cond.Value)
	case "ends_with":
		if resolved.IsNullish() {
			return false
		}
		return strings.HasSuffix(resolved.AsString(), cond.Value)
	case "matches_regex":
		re, err := regexp.Compile(cond.Value)
		if err != nil {
			logger.Error("invalid regex in condition", "pattern", cond.Value, "error", err)
			return false
		}
		return re.MatchString(resolved.AsString())
	case "exists":
		return !resolved.IsNullish()
	case "not_exists":
		return resolved.IsNullish()
	case "is_number":
		return resolved.Kind == KindNumber
	case "is_text":
		return resolved.Kind == KindString
	case "is_boolean":
		return resolved.Kind == KindBool
	case "is_array":
		return resolved.Kind == KindList
	case "is_true":
		return resolved.Kind == KindBool && resolved.Bool
	case "is_false":
		return resolved.Kind == KindBool && !resolved.Bool
	default:
		logger.Warn("unknown condition operator", "operator", cond.Operator, "variable", cond.Variable)
		return false
	}
}

// smartEquals implements the "equals" coercion ladder: numeric
// comparison when ctx is a number and value parses as one, boolean comparison when ctx
// is a bool and value is a boolean literal, null-vs-empty-string equality,
// and string comparison otherwise.
func smartEquals(ctx Value, value string) bool {
	if ctx.Kind == KindNumber {
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			return ctx.Num == n
		}
	}
	if ctx.Kind == KindBool {
		switch strings.ToLower(value) {
		case "true":
			return ctx.Bool
		case "false":
			return !ctx.Bool
		}
	}
	if ctx.IsNullish() && value == "" {
		return true
	}
	return ctx.AsString() == value
}

func numericCompare(ctx Value, value string, logger *slog.Logger, cmp func(a, b float64) bool) bool {
	ctxNum, ok := ctx.AsNumber()
	if !ok {
		logger.Warn("condition operand is not numeric", "value", ctx.Kind.String())
		return false
	}
	valNum, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Warn("condition comparison value is not numeric", "value", value)
		return false
	}
	return cmp(ctxNum, valNum)
}
