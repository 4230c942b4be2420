package models

import "strings"

// Role selects which audience an IRAC brief is written for.
type Role string

const (
	RoleStudent    Role = "student"
	RoleLawStudent Role = "law_student"
	RoleParalegal  Role = "paralegal"
)

// Canonical folds role aliases so that equivalent roles share prompts and cache entries.
// Student and law_student become student; any other value becomes paralegal.
func (r Role) Canonical() Role {
	switch Role(strings.ToLower(strings.TrimSpace(string(r)))) {
	case RoleStudent, RoleLawStudent:
		return RoleStudent
	default:
		return RoleParalegal
	}
}

// CaseRequest carries the sanitized metadata submitted with an upload.
type CaseRequest struct {
	Role         Role   `json:"role"`
	CaseName     string `json:"case_name"`
	DocketNumber string `json:"docket_number,omitempty"`
}

// UploadedDocument is the raw upload. It lives only for the duration of one request.
type UploadedDocument struct {
	FileName string
	Data     []byte
}
