package storage

import (
	"reflect"
	"testing"
)

func TestConditionPredicates(t *testing.T) {
	cases := []struct {
		name string
		cond *Condition
		key  string
		want bool
	}{
		{"eq match", NewCondition().EQ("abc"), "abc", true},
		{"eq mismatch", NewCondition().EQ("abc"), "abd", false},
		{"ne match", NewCondition().NE("abc"), "xyz", true},
		{"ne mismatch", NewCondition().NE("abc"), "abc", false},
		{"gt true", NewCondition().GT("b"), "c", true},
		{"gt false on equal", NewCondition().GT("b"), "b", false},
		{"ge true on equal", NewCondition().GE("b"), "b", true},
		{"lt true", NewCondition().LT("b"), "a", true},
		{"lt false on equal", NewCondition().LT("b"), "b", false},
		{"le true on equal", NewCondition().LE("b"), "b", true},
		{"starts with true", NewCondition().StartsWith("user_"), "user_42", true},
		{"starts with false", NewCondition().StartsWith("user_"), "acct_42", false},
		{"ends with true", NewCondition().EndsWith("_42"), "user_42", true},
		{"contains true", NewCondition().Contains("ser"), "user_42", true},
		{"contains false", NewCondition().Contains("zzz"), "user_42", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cond.Match(tc.key); got != tc.want {
				t.Fatalf("Match(%q) = %v, want %v", tc.key, got, tc.want)
			}
		})
	}
}

func TestConditionConjunctive(t *testing.T) {
	cond := NewCondition().StartsWith("user_").GT("user_10")
	if !cond.Match("user_42") {
		t.Fatalf("expected user_42 to match conjunctive condition")
	}
	if cond.Match("acct_42") {
		t.Fatalf("acct_42 should fail the prefix predicate")
	}
	if cond.Match("user_05") {
		t.Fatalf("user_05 should fail the GT predicate")
	}
}

func TestConditionApplyLimit(t *testing.T) {
	keys := []string{"c", "a", "b", "e", "d"}

	unlimited := NewCondition().ApplyLimit(append([]string(nil), keys...))
	if want := []string{"a", "b", "c", "d", "e"}; !reflect.DeepEqual(unlimited, want) {
		t.Fatalf("unlimited ApplyLimit = %v, want %v", unlimited, want)
	}

	limited := NewCondition().Limit(1, 2).ApplyLimit(append([]string(nil), keys...))
	if want := []string{"b", "c"}; !reflect.DeepEqual(limited, want) {
		t.Fatalf("limited ApplyLimit = %v, want %v", limited, want)
	}

	beyond := NewCondition().Limit(10, 2).ApplyLimit(append([]string(nil), keys...))
	if beyond != nil {
		t.Fatalf("ApplyLimit beyond range = %v, want nil", beyond)
	}

	clipped := NewCondition().Limit(3, 100).ApplyLimit(append([]string(nil), keys...))
	if want := []string{"d", "e"}; !reflect.DeepEqual(clipped, want) {
		t.Fatalf("clipped ApplyLimit = %v, want %v", clipped, want)
	}
}

func TestConditionWithCompare(t *testing.T) {
	reverse := func(a, b string) int {
		return defaultCompare(b, a)
	}
	cond := NewCondition().WithCompare(reverse).GT("m")
	if !cond.Match("a") {
		t.Fatalf("under reversed comparator, 'a' should be GT 'm'")
	}
	if cond.Match("z") {
		t.Fatalf("under reversed comparator, 'z' should not be GT 'm'")
	}
}
