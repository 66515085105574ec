package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name                  string
		ctype, scope, subject string
		body                  string
		want                  string
	}{
		{"full", TypeFeat, "notes", "save 3 notes", "text_1 done", "feat(notes): save 3 notes\n\ntext_1 done\n\n" + Footer},
		{"no scope", TypeFix, "", "repair", "", "fix: repair\n\n" + Footer},
		{"default type", "", "notes", "save", "  ", "chore(notes): save\n\n" + Footer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMessage(tt.ctype, tt.scope, tt.subject, tt.body))
		})
	}
}
