package models

import (
	"time"

	"github.com/lib/pq"
)

// Internship records one industry engagement in a student's SAR booklet.
type Internship struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	Company        string         `db:"company" json:"company"`
	Position       string         `db:"position" json:"position"`
	StartDate      string         `db:"start_date" json:"start_date"`
	EndDate        string         `db:"end_date" json:"end_date,omitempty"`
	Description    string         `db:"description" json:"description,omitempty"`
	Skills         pq.StringArray `db:"skills" json:"skills,omitempty"`
	Technologies   pq.StringArray `db:"technologies" json:"technologies,omitempty"`
	TeamMembers    pq.StringArray `db:"team_members" json:"team_members,omitempty"`
	CertificateURL string         `db:"certificate_url" json:"certificate_url,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Achievement records one award or recognition in a student's SAR booklet.
type Achievement struct {
	ID           string         `db:"id" json:"id"`
	StudentID    string         `db:"student_id" json:"student_id"`
	Title        string         `db:"title" json:"title"`
	Organization string         `db:"organization" json:"organization"`
	Date         string         `db:"date" json:"date"`
	Category     string         `db:"category" json:"category,omitempty"`
	Description  string         `db:"description" json:"description,omitempty"`
	Tags         pq.StringArray `db:"tags" json:"tags,omitempty"`
	MediaLinks   pq.StringArray `db:"media_links" json:"media_links,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
