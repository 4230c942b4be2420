package prompt

import (
	"strings"

	"iracgo/internal/models"
)

// Sanitize drops every byte outside printable ASCII, keeping newlines.
// Multi-byte UTF-8 sequences are removed whole since none of their bytes are printable ASCII.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\n' || (c >= 0x20 && c <= 0x7e) {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// NewCaseRequest sanitizes raw form values and applies defaults:
// an empty role means student, and a request with neither case name nor docket gets DefaultCaseName.
func NewCaseRequest(role, caseName, docket string) models.CaseRequest {
	role = strings.TrimSpace(Sanitize(role))
	if role == "" {
		role = string(models.RoleStudent)
	}
	caseName = strings.TrimSpace(Sanitize(caseName))
	docket = strings.TrimSpace(Sanitize(docket))
	if caseName == "" && docket == "" {
		caseName = DefaultCaseName
	}
	return models.CaseRequest{
		Role:         models.Role(role),
		CaseName:     caseName,
		DocketNumber: docket,
	}
}
