package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"email", "write to priya.s@example.com please", "write to [EMAIL] please"},
		{"indian mobile", "call me on +91 98765 43210", "call me on [PHONE]"},
		{"us number", "my number is (555) 123-4567", "my number is [PHONE]"},
		{"landline", "clinic line 022 4000 1101", "clinic line [PHONE]"},
		{"symptoms kept", "I have tooth pain since 3 days", "I have tooth pain since 3 days"},
		{"dates kept", "next Monday or 12/03/2026", "next Monday or 12/03/2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScrubPII(tt.in))
		})
	}
}

func TestScrubMessages(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "reach me at a@b.co"},
		{Role: "assistant", Content: "Thanks!"},
	}
	ScrubMessages(msgs)
	assert.Equal(t, "reach me at [EMAIL]", msgs[0].Content)
	assert.Equal(t, "Thanks!", msgs[1].Content)
}
