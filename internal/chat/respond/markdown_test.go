// internal/chat/respond/markdown_test.go
package respond

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "double star becomes bold",
			input:    "eat **more vegetables** daily",
			expected: "eat <b>more vegetables</b> daily",
		},
		{
			name:     "single star becomes bold",
			input:    "add *iron-rich* foods",
			expected: "add <b>iron-rich</b> foods",
		},
		{
			name:     "newline becomes line break",
			input:    "first line\nsecond line",
			expected: "first line<br>second line",
		},
		{
			name:     "mixed emphasis and newlines",
			input:    "**Tips:**\n*protein* every meal",
			expected: "<b>Tips:</b><br><b>protein</b> every meal",
		},
		{
			name:     "plain text unchanged",
			input:    "drink clean water",
			expected: "drink clean water",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatHTML(tt.input))
		})
	}
}
