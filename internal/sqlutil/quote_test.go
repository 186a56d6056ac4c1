package sqlutil

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"posts", "`posts`"},
		{"published_by", "`published_by`"},
		{"select", "`select`"},        // reserved word
		{"first name", "`first name`"}, // space in name
		{"a`b`c", "`a``b``c`"},        // embedded backticks
		{"", "``"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := QuoteIdentifier(tt.input)
			if result != tt.expected {
				t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestQualifyColumn(t *testing.T) {
	tests := []struct {
		alias    string
		column   string
		expected string
	}{
		{"", "id", "`id`"},
		{"p", "id", "`p`.`id`"},
		{"__batch", "author_id", "`__batch`.`author_id`"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := QualifyColumn(tt.alias, tt.column)
			if result != tt.expected {
				t.Errorf("QualifyColumn(%q, %q) = %q, want %q", tt.alias, tt.column, result, tt.expected)
			}
		})
	}
}
