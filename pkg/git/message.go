package git

import "strings"

// Conventional commit types used for history commits.
const (
	TypeFeat  = "feat"
	TypeFix   = "fix"
	TypeChore = "chore"
)

// Footer marks commits written by voxnotes.
const Footer = "Recorded-by: voxnotes"

// FormatMessage builds a conventional commit message:
//
//	<type>(<scope>): <subject>
//
//	<body>
//
//	Recorded-by: voxnotes
func FormatMessage(ctype, scope, subject, body string) string {
	var sb strings.Builder

	if ctype == "" {
		ctype = TypeChore
	}
	sb.WriteString(ctype)
	if scope != "" {
		sb.WriteString("(")
		sb.WriteString(scope)
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(subject)

	if body = strings.TrimSpace(body); body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(body)
	}

	sb.WriteString("\n\n")
	sb.WriteString(Footer)
	return sb.String()
}
