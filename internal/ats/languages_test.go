package ats

import (
	"testing"
)

func TestNormalizeLanguages(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"case and duplicates", []string{"english", "ENGLISH", "Tamil", "klingon"}, []string{"English", "Tamil"}},
		{"whitespace", []string{"  hindi ", "Telugu"}, []string{"Hindi", "Telugu"}},
		{"order preserved", []string{"nepali", "oriya", "urdu", "Nepali"}, []string{"Nepali", "Oriya", "Urdu"}},
		{"all unknown", []string{"esperanto", ""}, []string{}},
		{"nil", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeLanguages(tt.input)
			if got == nil {
				t.Fatal("expected non-nil result")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("NormalizeLanguages(%v) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("NormalizeLanguages(%v)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCustomLanguageTable(t *testing.T) {
	n := NewLanguageNormalizer([]string{"Sanskrit", " ", "English"})
	got := n.Normalize([]string{"SANSKRIT", "tamil", "english"})
	if len(got) != 2 || got[0] != "Sanskrit" || got[1] != "English" {
		t.Errorf("Normalize() = %v, want [Sanskrit English]", got)
	}
}
