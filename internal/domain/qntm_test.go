package domain

import "testing"

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"at sign and tilde", "@memory ~ consolidation", "memory_consolidation"},
		{"canonical key", "auth_module ~ validates ~ jwt_tokens", "auth_module_validates_jwt_tokens"},
		{"mixed case", "Cache ~ Evicts ~ LRU", "cache_evicts_lru"},
		{"punctuation stripped", "foo! ~ bar? ~ baz.", "foo_bar_baz"},
		{"whitespace runs", "a   b\t c", "a_b_c"},
		{"empty", "", ""},
		{"hyphen preserved", "semi-structured ~ data", "semi-structured_data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeKey(tt.in); got != tt.want {
				t.Errorf("SanitizeKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"subject ~ predicate ~ object", true},
		{"auth_module ~ validates ~ jwt_tokens", true},
		{"only_two ~ segments", false},
		{"a ~ b ~ c ~ d", false},
		{"a ~  ~ c", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidKey(tt.key); got != tt.want {
			t.Errorf("ValidKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestAbstractionLevelString(t *testing.T) {
	wants := map[AbstractionLevel]string{
		LevelInstance:  "Instance",
		LevelTopic:     "Topic",
		LevelConcept:   "Concept",
		LevelPrinciple: "Principle",
	}
	for level, want := range wants {
		if got := level.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", level, got, want)
		}
		if !level.Valid() {
			t.Errorf("%d.Valid() = false, want true", level)
		}
	}

	if AbstractionLevel(4).Valid() {
		t.Error("level 4 should be invalid")
	}
	if AbstractionLevel(-1).Valid() {
		t.Error("level -1 should be invalid")
	}
}
