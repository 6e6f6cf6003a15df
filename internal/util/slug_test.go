package util

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// Basic normalization
		{"lowercase", "URGENT", "urgent"},
		{"spaces to dashes", "web development", "web-development"},
		{"underscores to dashes", "client_work", "client-work"},
		{"already normalized", "web-development", "web-development"},

		// Whitespace handling
		{"trim whitespace", "  urgent  ", "urgent"},
		{"multiple spaces", "Web   Development", "web-development"},
		{"tabs and spaces", "web\t development", "web-development"},

		// Special characters
		{"emoji removal", "🔥 Urgent!", "urgent"},
		{"slash", "design/ux", "design-ux"},
		{"apostrophe removal", "client's", "clients"},
		{"accent folding", "Café Menus", "cafe-menus"},
		{"umlaut folding", "Über Projekt", "uber-projekt"},

		// Dash handling
		{"multiple dashes", "web--dev", "web-dev"},
		{"mixed dashes", "--web--dev--", "web-dev"},

		// Edge cases
		{"empty string", "", ""},
		{"only spaces", "   ", ""},
		{"only special chars", "!@#$%", ""},
		{"numbers allowed", "q3 2025", "q3-2025"},
		{"mixed case with numbers", "Top 10 Clients", "top-10-clients"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Slugify(tt.input)
			if result != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSlugify_SameSlugForVariants(t *testing.T) {
	a := Slugify("Web Development")
	b := Slugify("Web   Development")
	if a != b {
		t.Errorf("expected identical slugs, got %q and %q", a, b)
	}
}

func TestIsSlug(t *testing.T) {
	valid := []string{"web-development", "a", "q3-2025", "parent-of"}
	invalid := []string{"", "Web", "-lead", "trail-", "a--b", "a_b", "a b"}

	for _, s := range valid {
		if !IsSlug(s) {
			t.Errorf("IsSlug(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsSlug(s) {
			t.Errorf("IsSlug(%q) = true, want false", s)
		}
	}
}
