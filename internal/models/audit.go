package models

import "time"

// AuditAction enumerates the recorded audit event kinds.
type AuditAction string

const (
	AuditActionLogin            AuditAction = "LOGIN"
	AuditActionLogout           AuditAction = "LOGOUT"
	AuditActionStudentCreate    AuditAction = "STUDENT_CREATE"
	AuditActionStudentUpdate    AuditAction = "STUDENT_UPDATE"
	AuditActionStudentDelete    AuditAction = "STUDENT_DELETE"
	AuditActionVerdictRecorded  AuditAction = "VERDICT_RECORDED"
	AuditActionProfileFinalized AuditAction = "PROFILE_FINALIZED"
	AuditActionRecordCreate     AuditAction = "RECORD_CREATE"
	AuditActionRecordUpdate     AuditAction = "RECORD_UPDATE"
	AuditActionRecordDelete     AuditAction = "RECORD_DELETE"
	AuditActionBookletExport    AuditAction = "BOOKLET_EXPORT"
)

// AuditLog is an append-only trail entry for sensitive operations.
type AuditLog struct {
	ID         string      `db:"id" json:"id"`
	UserID     string      `db:"user_id" json:"user_id"`
	Action     AuditAction `db:"action" json:"action"`
	EntityType string      `db:"entity_type" json:"entity_type"`
	EntityID   string      `db:"entity_id" json:"entity_id"`
	Detail     string      `db:"detail" json:"detail,omitempty"`
	IPAddress  string      `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}
