package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Heading",
			input:    "# Fractions",
			expected: "<h1 id=\"fractions\">Fractions</h1>\n",
		},
		{
			name:     "GFM Table",
			input:    "| Week | Topic |\n|---|---|\n| 1 | Algebra |",
			expected: "<table>",
		},
		{
			name:     "GFM Task List",
			input:    "- [ ] Exercise 1\n- [x] Exercise 2",
			expected: "<input disabled=\"\" type=\"checkbox\"",
		},
		{
			name:     "Empty Input",
			input:    "",
			expected: "",
		},
		{
			name:     "GFM Strikethrough",
			input:    "~~deleted~~",
			expected: "<del>deleted</del>",
		},
		{
			name:     "GFM Autolink",
			input:    "See https://example.com for answers",
			expected: "<a href=\"https://example.com\"",
		},
		{
			name:     "Hard wraps",
			input:    "line one\nline two",
			expected: "line one<br />",
		},
		{
			name:     "Highlighted code",
			input:    "```go\nfunc main() {}\n```",
			expected: "chroma",
		},
	}

	renderer := NewRenderer()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderer.RenderString(tt.input)
			require.NoError(t, err)
			assert.Contains(t, got, tt.expected)
		})
	}
}

func TestRenderer_DropsUnsafeContent(t *testing.T) {
	renderer := NewRenderer()

	got, err := renderer.RenderString("<script>alert(1)</script>\n\n<div onclick=\"x()\">hi</div>")
	require.NoError(t, err)
	assert.NotContains(t, got, "<script>")
	assert.NotContains(t, got, "onclick")
	assert.Contains(t, got, "raw HTML omitted")

	got, err = renderer.RenderString("[click](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, got, "javascript:")
}
