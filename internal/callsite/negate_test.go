package callsite

import "testing"

func TestNegate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"len == 0", "len != 0"},
		{"!done", "done"},
		{"ptr", "!(ptr)"},
		{"a != b", "a == b"},
		{"i <= n", "i > n"},
		{"i >= n", "i < n"},
		{"i < n", "i >= n"},
		{"i > n", "i <= n"},
		{"p->len > 0", "p->len <= 0"},
		{"x << 2 < y", "x << 2 >= y"},
		{"a < b && c == d", "a < b && c != d"},
		{"  ! ready ", "ready"},
		{"p->next", "!(p->next)"},
	}
	for _, tc := range cases {
		if got := Negate(tc.in); got != tc.want {
			t.Fatalf("Negate(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestNegateTwice(t *testing.T) {
	for _, expr := range []string{"len == 0", "i < n", "a >= b"} {
		if got := Negate(Negate(expr)); got != expr {
			t.Fatalf("expected %q after double negation, got %q", expr, got)
		}
	}
	// wrapping then stripping leaves the parentheses behind
	if got := Negate(Negate("ptr")); got != "(ptr)" {
		t.Fatalf("expected %q, got %q", "(ptr)", got)
	}
}
