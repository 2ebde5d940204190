package engine

import "testing"

func TestValueIsMissingAndNullish(t *testing.T) {
	if !Missing.IsMissing() {
		t.Error("Missing.IsMissing() = false, want true")
	}
	if Null.IsMissing() {
		t.Error("Null.IsMissing() = true, want false")
	}
	if !Null.IsNullish() {
		t.Error("Null.IsNullish() = false, want true")
	}
	if !Missing.IsNullish() {
		t.Error("Missing.IsNullish() = false, want true")
	}
	if String("x").IsNullish() {
		t.Error("String(\"x\").IsNullish() = true, want false")
	}
}

func TestOrderedMapPreservesInsertionOrder(t *testing.T) {
	m := NewOrderedMap()
	m.Set("z", Number(1))
	m.Set("a", Number(2))
	m.Set("m", Number(3))

	got := m.Keys()
	want := []string{"z", "a", "m"}
	for i, k := range want {
		if got[i] != k {
			t.Fatalf("Keys()[%d] = %q, want %q", i, got[i], k)
		}
	}

	if sorted := m.SortedKeys(); sorted[0] != "a" || sorted[1] != "m" || sorted[2] != "z" {
		t.Errorf("SortedKeys() = %v, want [a m z]", sorted)
	}
}

func TestOrderedMapSetOverwritesInPlace(t *testing.T) {
	m := NewOrderedMap()
	m.Set("k", Number(1))
	fetched, _ := m.Get("k")

	m.Set("k", Number(2))

	if fetched.Num != 2 {
		t.Errorf("previously fetched *Value.Num = %v, want 2 (in-place mutation)", fetched.Num)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (overwrite must not duplicate the key)", m.Len())
	}
}

func TestOrderedMapDelete(t *testing.T) {
	m := NewOrderedMap()
	m.Set("a", Number(1))
	m.Set("b", Number(2))
	m.Delete("a")

	if _, ok := m.Get("a"); ok {
		t.Error("Get(\"a\") ok = true after Delete, want false")
	}
	if got := m.Keys(); len(got) != 1 || got[0] != "b" {
		t.Errorf("Keys() = %v, want [b]", got)
	}
}

func TestValueCloneIsDeep(t *testing.T) {
	orig := Map()
	orig.Map.Set("list", List(Number(1), Number(2)))

	clone := orig.Clone()
	cv, _ := clone.Map.Get("list")
	cv.List[0] = Number(99)

	ov, _ := orig.Map.Get("list")
	if ov.List[0].Num != 1 {
		t.Errorf("mutating clone's list leaked into original: got %v, want 1", ov.List[0].Num)
	}
}

func TestFromAnyRoundTrip(t *testing.T) {
	in := map[string]any{
		"name": "alice",
		"age":  float64(30),
		"tags": []any{"a", "b"},
		"nil":  nil,
	}
	v := FromAny(in)
	if v.Kind != KindMap {
		t.Fatalf("FromAny(map) Kind = %v, want KindMap", v.Kind)
	}
	name, _ := v.Map.Get("name")
	if name.AsString() != "alice" {
		t.Errorf("name = %q, want alice", name.AsString())
	}
	nilVal, _ := v.Map.Get("nil")
	if nilVal.Kind != KindNull {
		t.Errorf("nil field Kind = %v, want KindNull", nilVal.Kind)
	}

	back := v.ToAny().(map[string]any)
	if back["name"] != "alice" {
		t.Errorf("ToAny()[\"name\"] = %v, want alice", back["name"])
	}
}

func TestAsNumber(t *testing.T) {
	tests := []struct {
		v       Value
		want    float64
		wantOK  bool
	}{
		{Number(3.5), 3.5, true},
		{String("42"), 42, true},
		{String("not-a-number"), 0, false},
		{Bool(true), 0, false},
		{Null, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.v.AsNumber()
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("%+v.AsNumber() = (%v, %v), want (%v, %v)", tt.v, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAsString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Missing, ""},
		{Null, ""},
		{String("hi"), "hi"},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{Number(10), "10"},
		{Number(1.5), "1.5"},
		{List(Number(1), Number(2)), "[1,2]"},
	}
	for _, tt := range tests {
		if got := tt.v.AsString(); got != tt.want {
			t.Errorf("%+v.AsString() = %q, want %q", tt.v, got, tt.want)
		}
	}
}
