package blogservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeMarkdown(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain content",
			input: "# Heading\n\nSome **bold** text.",
			want:  "# Heading\n\nSome **bold** text.",
		},
		{
			name:  "script tag",
			input: "<script>alert('pwned');</script>",
			want:  "",
		},
		{
			name:  "mixed case with attributes",
			input: `before <SCRIPT SRC="evil.js"></SCRIPT> after`,
			want:  "before  after",
		},
		{
			name:  "spaced closing tag",
			input: "text<script>x()< / script >tail",
			want:  "texttail",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitizeMarkdown(tc.input))
		})
	}
}
