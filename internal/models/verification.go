package models

import "time"

// Verdict is a reviewer's judgment on a single profile field. The zero-ish
// "unset" state is explicit rather than encoded as a missing map key.
type Verdict string

const (
	VerdictUnset     Verdict = "UNSET"
	VerdictCorrect   Verdict = "CORRECT"
	VerdictIncorrect Verdict = "INCORRECT"
)

// VerificationStatus is the derived overall decision for a profile.
type VerificationStatus string

const (
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationDeclined VerificationStatus = "DECLINED"
)

// FieldRef identifies one field within a profile section.
type FieldRef struct {
	Section Section `json:"section"`
	Field   string  `json:"field"`
}

// VerdictMap holds per-field verdicts keyed by section then field. Fields
// without an entry are unset.
type VerdictMap map[Section]map[string]Verdict

// Get returns the verdict for the field, VerdictUnset when absent.
func (m VerdictMap) Get(section Section, field string) Verdict {
	if fields, ok := m[section]; ok {
		if v, ok := fields[field]; ok && v != "" {
			return v
		}
	}
	return VerdictUnset
}

// Set records a verdict, allocating the section map on first use.
func (m VerdictMap) Set(section Section, field string, v Verdict) {
	fields, ok := m[section]
	if !ok {
		fields = make(map[string]Verdict)
		m[section] = fields
	}
	fields[field] = v
}

// Clone returns a deep copy, so a caller can snapshot the map before a
// mutation it may need to roll back.
func (m VerdictMap) Clone() VerdictMap {
	out := make(VerdictMap, len(m))
	for section, fields := range m {
		copied := make(map[string]Verdict, len(fields))
		for field, v := range fields {
			copied[field] = v
		}
		out[section] = copied
	}
	return out
}

// VerificationOutcome is the persisted decision for one reviewed profile.
// It is always derived from the verdict map, never hand-edited.
type VerificationOutcome struct {
	ID             string             `db:"id" json:"id"`
	StudentID      string             `db:"student_id" json:"student_id"`
	Status         VerificationStatus `db:"status" json:"status"`
	DeclinedFields []FieldRef         `json:"declined_fields"`
	Reason         string             `db:"reason" json:"reason,omitempty"`
	ReviewedBy     string             `db:"reviewed_by" json:"reviewed_by"`
	ReviewedAt     time.Time          `db:"reviewed_at" json:"reviewed_at"`
}

// SessionState names the verification session position.
type SessionState string

const (
	SessionReviewing SessionState = "REVIEWING"
	SessionFinalized SessionState = "FINALIZED"
)
