package listing

import "testing"

func TestLegalName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Main", "Main"},
		{"flash.display.Sprite", "flash.display.Sprite"},
		{"a/b", "a%2Fb"},
		{"what?", "what%3F"},
		{"100%", "100%25"},
		{"tab\there", "tab%09here"},
		{"dot.", "dot%2E"},
		{"con", "%con"},
		{"", "%"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := legalName(tt.in); got != tt.want {
				t.Errorf("legalName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNamerCollisions(t *testing.T) {
	n := NewNamer()
	a := n.Name("Foo")
	b := n.Name("foo")
	c := n.Name("FOO")
	if a != "Foo" || b != "foo_2" || c != "FOO_3" {
		t.Errorf("names = %q, %q, %q", a, b, c)
	}
	if again := n.Name("foo"); again != b {
		t.Errorf("repeated Name = %q, want %q", again, b)
	}

	// a fresh namer does not remember previous runs
	if got := NewNamer().Name("foo"); got != "foo" {
		t.Errorf("new Namer = %q", got)
	}
}
