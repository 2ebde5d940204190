package engine

import "testing"

func TestEvaluateConditionSmartEquals(t *testing.T) {
	logger := testLogger()
	ctx := Map()
	ctx.Map.Set("age", Number(30))
	ctx.Map.Set("active", Bool(true))
	ctx.Map.Set("name", String("alice"))
	ctx.Map.Set("missing_or_null", Null)

	tests := []struct {
		name string
		cond ConditionData
		want bool
	}{
		{"numeric equals", ConditionData{Variable: "age", Operator: "equals", Value: "30"}, true},
		{"numeric not equal", ConditionData{Variable: "age", Operator: "equals", Value: "31"}, false},
		{"bool equals true", ConditionData{Variable: "active", Operator: "equals", Value: "true"}, true},
		{"bool equals false literal against true", ConditionData{Variable: "active", Operator: "equals", Value: "false"}, false},
		{"string equals", ConditionData{Variable: "name", Operator: "equals", Value: "alice"}, true},
		{"null equals empty string", ConditionData{Variable: "missing_or_null", Operator: "equals", Value: ""}, true},
		{"not_equals inverts", ConditionData{Variable: "age", Operator: "not_equals", Value: "30"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateCondition(ctx, tt.cond, logger); got != tt.want {
				t.Errorf("EvaluateCondition(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestEvaluateConditionNumericComparisons(t *testing.T) {
	logger := testLogger()
	ctx := Map()
	ctx.Map.Set("score", Number(75))

	tests := []struct {
		op   string
		val  string
		want bool
	}{
		{"greater_than", "50", true},
		{"greater_than", "75", false},
		{"greater_equals", "75", true},
		{"less_than", "100", true},
		{"less_equals", "75", true},
		{"less_equals", "74", false},
	}
	for _, tt := range tests {
		cond := ConditionData{Variable: "score", Operator: tt.op, Value: tt.val}
		if got := EvaluateCondition(ctx, cond, logger); got != tt.want {
			t.Errorf("EvaluateCondition(%s %s) = %v, want %v", tt.op, tt.val, got, tt.want)
		}
	}
}

func TestEvaluateConditionStringOps(t *testing.T) {
	logger := testLogger()
	ctx := Map()
	ctx.Map.Set("msg", String("hello world"))

	tests := []struct {
		op   string
		val  string
		want bool
	}{
		{"contains", "world", true},
		{"contains", "xyz", false},
		{"starts_with", "hello", true},
		{"ends_with", "world", true},
		{"matches_regex", "^hello.*d$", true},
		{"matches_regex", "^world", false},
	}
	for _, tt := range tests {
		cond := ConditionData{Variable: "msg", Operator: tt.op, Value: tt.val}
		if got := EvaluateCondition(ctx, cond, logger); got != tt.want {
			t.Errorf("EvaluateCondition(%s %q) = %v, want %v", tt.op, tt.val, got, tt.want)
		}
	}
}

func TestEvaluateConditionExistenceAndType(t *testing.T) {
	logger := testLogger()
	ctx := Map()
	ctx.Map.Set("n", Number(1))
	ctx.Map.Set("flag", Bool(true))
	ctx.Map.Set("list", List(Number(1)))

	cases := []struct {
		cond ConditionData
		want bool
	}{
		{ConditionData{Variable: "n", Operator: "exists"}, true},
		{ConditionData{Variable: "absent", Operator: "exists"}, false},
		{ConditionData{Variable: "absent", Operator: "not_exists"}, true},
		{ConditionData{Variable: "n", Operator: "is_number"}, true},
		{ConditionData{Variable: "flag", Operator: "is_boolean"}, true},
		{ConditionData{Variable: "list", Operator: "is_array"}, true},
		{ConditionData{Variable: "flag", Operator: "is_true"}, true},
		{ConditionData{Variable: "flag", Operator: "is_false"}, false},
	}
	for _, tt := range cases {
		if got := EvaluateCondition(ctx, tt.cond, logger); got != tt.want {
			t.Errorf("EvaluateCondition(%+v) = %v, want %v", tt.cond, got, tt.want)
		}
	}
}

func TestEvaluateConditionMissingVariableIsFalse(t *testing.T) {
	logger := testLogger()
	cond := ConditionData{Variable: "", Operator: "equals", Value: "x"}
	if got := EvaluateCondition(Map(), cond, logger); got != false {
		t.Errorf("EvaluateCondition with empty Variable = %v, want false", got)
	}
}

func TestEvaluateConditionUnknownOperatorIsFalse(t *testing.T) {
	logger := testLogger()
	ctx := Map()
	ctx.Map.Set("x", Number(1))
	cond := ConditionData{Variable: "x", Operator: "bogus_operator", Value: "1"}
	if got := EvaluateCondition(ctx, cond, logger); got != false {
		t.Errorf("EvaluateCondition with unknown operator = %v, want false", got)
	}
}
