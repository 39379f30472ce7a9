package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  ship   by friday ", "ship by friday"},
		{"keeps lines", "line one\n\n  line two", "line one\nline two"},
		{"strips tags", "<b>rush</b> order", "rush order"},
		{"drops script", "ok<script>alert(1)</script> done", "ok done"},
		{"decodes entities", "5 &lt; 6 &amp; 7", "5 < 6 & 7"},
		{"encoded tags stay text", "&lt;img src=x&gt;", "<img src=x>"},
		{"blocks become lines", "<p>front</p><p>back</p>", "front\nback"},
		{"br", "a<br/>b", "a\nb"},
		{"drops control characters", "rush\x00 order\x1b[31m", "rush order[31m"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Text(tc.in))
		})
	}
}

func TestTextPtr(t *testing.T) {
	assert.Nil(t, TextPtr(nil))
	in := "<i>note</i>"
	assert.Equal(t, "note", *TextPtr(&in))
}
