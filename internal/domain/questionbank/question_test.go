package questionbank

import (
	"encoding/json"
	"testing"
)

func intp(i int) *int { return &i }

func mustQuestion(t *testing.T, q *Question) *Question {
	t.Helper()
	rule, err := newRule(q)
	if err != nil {
		t.Fatalf("newRule: %v", err)
	}
	q.rule = rule
	return q
}

func choiceOptions() []Option {
	return []Option{
		{Value: "a", Score: intp(0)},
		{Value: "b", Score: intp(2)},
		{Value: "c", Score: intp(3)},
		{Value: "d"},
	}
}

func TestSingleChoice(t *testing.T) {
	q := mustQuestion(t, &Question{ID: "q", Kind: KindSingleChoice, Options: choiceOptions()})
	tests := []struct {
		name    string
		v       Value
		want    int
		wantErr bool
	}{
		{"string", StringValue("b"), 2, false},
		{"unscored option", StringValue("d"), 0, false},
		{"number matches value", NumberValue(1), 0, true},
		{"unknown", StringValue("z"), 0, true},
		{"single element list", ListValue("c"), 3, false},
		{"two values", ListValue("b", "c"), 0, true},
		{"empty", Value{}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.Score(tt.v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
	if q.MaxScore() != 3 {
		t.Errorf("expected max 3, got %d", q.MaxScore())
	}
}

func TestSingleChoice_NumericValues(t *testing.T) {
	q := mustQuestion(t, &Question{ID: "q", Kind: KindSingleChoice, Options: []Option{
		{Value: "0", Score: intp(0)},
		{Value: "2", Score: intp(2)},
	}})
	got, err := q.Score(NumberValue(2))
	if err != nil || got != 2 {
		t.Errorf("expected 2, got %d (%v)", got, err)
	}
}

func TestMultiChoice(t *testing.T) {
	q := mustQuestion(t, &Question{ID: "q", Kind: KindMultiChoice, Options: choiceOptions()})

	got, err := q.Score(ListValue("b", "c", "b"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Errorf("expected 5 with repeat counted once, got %d", got)
	}

	got, err = q.Score(ListValue("b", "zz"))
	if err == nil {
		t.Error("expected error for unknown option")
	}
	if got != 2 {
		t.Errorf("expected known options still summed to 2, got %d", got)
	}

	got, err = q.Score(ListValue())
	if err != nil || got != 0 {
		t.Errorf("expected empty selection to score 0, got %d (%v)", got, err)
	}

	if q.MaxScore() != 5 {
		t.Errorf("expected max 5, got %d", q.MaxScore())
	}
}

func TestScale(t *testing.T) {
	q := mustQuestion(t, &Question{ID: "q", Kind: KindScale, Buckets: []Bucket{
		{Min: 0, Max: 4, Score: 3},
		{Min: 5, Max: 10, Score: 0},
	}})
	tests := []struct {
		v       Value
		want    int
		wantErr bool
	}{
		{NumberValue(0), 3, false},
		{NumberValue(4), 3, false},
		{NumberValue(5), 0, false},
		{StringValue(" 7 "), 0, false},
		{NumberValue(4.5), 0, true},
		{StringValue("lots"), 0, true},
		{ListValue("1"), 0, true},
	}
	for _, tt := range tests {
		got, err := q.Score(tt.v)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.v, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.v, tt.want, got)
		}
	}
	if q.MaxScore() != 3 {
		t.Errorf("expected max 3, got %d", q.MaxScore())
	}
}

func TestText(t *testing.T) {
	scored := mustQuestion(t, &Question{ID: "q", Kind: KindText, Buckets: []Bucket{{Min: 0, Max: 1, Score: 3}}})
	if got, err := scored.Score(StringValue("1")); err != nil || got != 3 {
		t.Errorf("expected 3, got %d (%v)", got, err)
	}
	if got, err := scored.Score(StringValue("about one")); err != nil || got != 0 {
		t.Errorf("non-numeric text should score 0 without error, got %d (%v)", got, err)
	}

	free := mustQuestion(t, &Question{ID: "q", Kind: KindText})
	if got, err := free.Score(StringValue("5")); err != nil || got != 0 {
		t.Errorf("unbucketed text should score 0, got %d (%v)", got, err)
	}
	if free.MaxScore() != 0 {
		t.Errorf("expected max 0, got %d", free.MaxScore())
	}
}

func TestValue_JSON(t *testing.T) {
	tests := []struct {
		in   string
		kind ValueKind
		out  string
	}{
		{`"yes"`, ValueString, `"yes"`},
		{`["a","b"]`, ValueList, `["a","b"]`},
		{`[]`, ValueList, `[]`},
		{`2.5`, ValueNumber, `2.5`},
		{`null`, ValueNone, `null`},
	}
	for _, tt := range tests {
		var v Value
		if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
			t.Fatalf("%s: %v", tt.in, err)
		}
		if v.Kind() != tt.kind {
			t.Errorf("%s: expected kind %d, got %d", tt.in, tt.kind, v.Kind())
		}
		out, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("%s: marshal: %v", tt.in, err)
		}
		if string(out) != tt.out {
			t.Errorf("%s: expected %s, got %s", tt.in, tt.out, out)
		}
	}

	var v Value
	if err := json.Unmarshal([]byte(`[1,2]`), &v); err == nil {
		t.Error("expected error for numeric list")
	}
	if err := json.Unmarshal([]byte(`{"a":1}`), &v); err == nil {
		t.Error("expected error for object")
	}
}
