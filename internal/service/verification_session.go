package service

import (
	"fmt"
	"time"

	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"

	"github.com/campuslink/sar-portal-api/internal/models"
)

// FieldVerificationStore holds the per-field verdicts for one profile under
// review. Only fields present in the section schema are accepted.
type FieldVerificationStore struct {
	verdicts models.VerdictMap
}

// NewFieldVerificationStore constructs an empty store.
func NewFieldVerificationStore() *FieldVerificationStore {
	return &FieldVerificationStore{verdicts: models.VerdictMap{}}
}

// NewFieldVerificationStoreFrom seeds the store with previously recorded
// verdicts, dropping any entries that no longer match the schema.
func NewFieldVerificationStoreFrom(verdicts models.VerdictMap) *FieldVerificationStore {
	store := NewFieldVerificationStore()
	for section, fields := range verdicts {
		for field, verdict := range fields {
			if models.ValidSectionField(section, field) && verdict != models.VerdictUnset {
				store.verdicts.Set(section, field, verdict)
			}
		}
	}
	return store
}

// SetVerdict records the reviewer's judgment for one field.
func (s *FieldVerificationStore) SetVerdict(section models.Section, field string, correct bool) error {
	if !models.ValidSectionField(section, field) {
		return appErrors.Clone(appErrors.ErrUnknownField, fmt.Sprintf("field %q is not part of section %q", field, section))
	}
	verdict := models.VerdictCorrect
	if !correct {
		verdict = models.VerdictIncorrect
	}
	s.verdicts.Set(section, field, verdict)
	return nil
}

// Verdict returns the recorded verdict for the field, unset when none exists.
func (s *FieldVerificationStore) Verdict(section models.Section, field string) models.Verdict {
	return s.verdicts.Get(section, field)
}

// SetAllInSection marks every field of the section correct in one step.
func (s *FieldVerificationStore) SetAllInSection(section models.Section) error {
	if !models.ValidSection(section) {
		return appErrors.Clone(appErrors.ErrUnknownField, fmt.Sprintf("unknown section %q", section))
	}
	for _, field := range models.SectionFields(section) {
		s.verdicts.Set(section, field, models.VerdictCorrect)
	}
	return nil
}

// SetAllIncorrect marks every schema field incorrect across all sections.
func (s *FieldVerificationStore) SetAllIncorrect() {
	for _, section := range models.SectionOrder {
		for _, field := range models.SectionFields(section) {
			s.verdicts.Set(section, field, models.VerdictIncorrect)
		}
	}
}

// HasAnyVerdict reports whether at least one field has been judged.
func (s *FieldVerificationStore) HasAnyVerdict() bool {
	for _, fields := range s.verdicts {
		for _, verdict := range fields {
			if verdict != models.VerdictUnset {
				return true
			}
		}
	}
	return false
}

// Verdicts exposes the underlying map for resolution and persistence.
func (s *FieldVerificationStore) Verdicts() models.VerdictMap {
	return s.verdicts
}

// SectionGate enforces forward-sequential movement through the sections of a
// pending profile. Decided profiles browse freely, so the gate is bypassed.
type SectionGate struct {
	store  *FieldVerificationStore
	bypass bool
}

// NewSectionGate constructs a gate over the given store.
func NewSectionGate(store *FieldVerificationStore, bypass bool) *SectionGate {
	return &SectionGate{store: store, bypass: bypass}
}

// IsSectionComplete reports whether every field of the section has a verdict.
func (g *SectionGate) IsSectionComplete(section models.Section) bool {
	for _, field := range models.SectionFields(section) {
		if g.store.Verdict(section, field) == models.VerdictUnset {
			return false
		}
	}
	return true
}

// CanAdvance reports whether the reviewer may move past the current section.
func (g *SectionGate) CanAdvance(current models.Section) bool {
	if g.bypass {
		return true
	}
	return g.IsSectionComplete(current)
}

// CompletedSections returns, in traversal order, the sections that carry no
// unset verdicts.
func (g *SectionGate) CompletedSections() []models.Section {
	var completed []models.Section
	for _, section := range models.SectionOrder {
		if g.IsSectionComplete(section) {
			completed = append(completed, section)
		}
	}
	return completed
}

// DecisionResolver derives the overall decision from a verdict map. It is the
// single source of truth: approve and decline wrappers only seed verdicts and
// then resolve.
type DecisionResolver struct{}

// Resolve returns DECLINED if any field is judged incorrect, APPROVED
// otherwise. Declined fields come back in section traversal order, then field
// declaration order within each section.
func (DecisionResolver) Resolve(verdicts models.VerdictMap) (models.VerificationStatus, []models.FieldRef) {
	var declined []models.FieldRef
	for _, section := range models.SectionOrder {
		for _, field := range models.SectionFields(section) {
			if verdicts.Get(section, field) == models.VerdictIncorrect {
				declined = append(declined, models.FieldRef{Section: section, Field: field})
			}
		}
	}
	if len(declined) > 0 {
		return models.VerificationDeclined, declined
	}
	return models.VerificationApproved, nil
}

// VerificationSession walks a reviewer through the four profile sections and
// finalizes into a persisted outcome. Sessions over already-decided profiles
// open directly in the finalized state for read-only browsing.
type VerificationSession struct {
	studentID  string
	store      *FieldVerificationStore
	gate       *SectionGate
	resolver   DecisionResolver
	state      models.SessionState
	sectionIdx int
	outcome    *models.VerificationOutcome
}

// NewVerificationSession opens a session for a pending profile at the first
// section.
func NewVerificationSession(studentID string) *VerificationSession {
	store := NewFieldVerificationStore()
	return &VerificationSession{
		studentID: studentID,
		store:     store,
		gate:      NewSectionGate(store, false),
		state:     models.SessionReviewing,
	}
}

// NewDecidedSession opens a read-only session over an existing outcome.
func NewDecidedSession(studentID string, outcome *models.VerificationOutcome, verdicts models.VerdictMap) *VerificationSession {
	store := NewFieldVerificationStoreFrom(verdicts)
	return &VerificationSession{
		studentID: studentID,
		store:     store,
		gate:      NewSectionGate(store, true),
		state:     models.SessionFinalized,
		outcome:   outcome,
	}
}

// StudentID returns the profile under review.
func (s *VerificationSession) StudentID() string { return s.studentID }

// State returns the session state.
func (s *VerificationSession) State() models.SessionState { return s.state }

// CurrentSection returns the section under review. For finalized sessions it
// reports the last section, which browsing starts from.
func (s *VerificationSession) CurrentSection() models.Section {
	return models.SectionOrder[s.sectionIdx]
}

// Outcome returns the finalized outcome, nil while reviewing.
func (s *VerificationSession) Outcome() *models.VerificationOutcome { return s.outcome }

// Store exposes the verdict store.
func (s *VerificationSession) Store() *FieldVerificationStore { return s.store }

// Gate exposes the section gate.
func (s *VerificationSession) Gate() *SectionGate { return s.gate }

// RecordVerdict judges one field of the profile.
func (s *VerificationSession) RecordVerdict(section models.Section, field string, correct bool) error {
	if s.state == models.SessionFinalized {
		return appErrors.ErrSessionFinalized
	}
	return s.store.SetVerdict(section, field, correct)
}

// VerifySection marks every field of the section correct.
func (s *VerificationSession) VerifySection(section models.Section) error {
	if s.state == models.SessionFinalized {
		return appErrors.ErrSessionFinalized
	}
	return s.store.SetAllInSection(section)
}

// Advance moves to the next section once the current one is complete.
// Advancing past the last section finalizes through the resolver.
func (s *VerificationSession) Advance(reviewedBy string) error {
	if s.state == models.SessionFinalized {
		return appErrors.ErrSessionFinalized
	}
	current := s.CurrentSection()
	if !s.gate.CanAdvance(current) {
		return appErrors.Clone(appErrors.ErrSectionIncomplete, fmt.Sprintf("section %q still has unreviewed fields", current))
	}
	if s.sectionIdx == len(models.SectionOrder)-1 {
		s.finalize(reviewedBy)
		return nil
	}
	s.sectionIdx++
	return nil
}

// Retreat moves back one section. Verdicts already recorded are kept.
// Retreating from the first section is a no-op.
func (s *VerificationSession) Retreat() error {
	if s.state == models.SessionFinalized {
		return appErrors.ErrSessionFinalized
	}
	if s.sectionIdx > 0 {
		s.sectionIdx--
	}
	return nil
}

// FinalizeNow resolves over whatever verdicts exist, skipping the remaining
// sections. Unjudged fields simply contribute nothing to the decision.
func (s *VerificationSession) FinalizeNow(reviewedBy string) (*models.VerificationOutcome, error) {
	if s.state == models.SessionFinalized {
		return nil, appErrors.ErrSessionFinalized
	}
	s.finalize(reviewedBy)
	return s.outcome, nil
}

// reopen undoes a finalize whose outcome was never persisted. Verdicts are
// kept so the reviewer can retry without re-judging anything.
func (s *VerificationSession) reopen() {
	s.state = models.SessionReviewing
	s.outcome = nil
}

// restoreVerdicts rewinds the store to a previously taken snapshot.
func (s *VerificationSession) restoreVerdicts(snapshot models.VerdictMap) {
	s.store.verdicts = snapshot
}

func (s *VerificationSession) finalize(reviewedBy string) {
	status, declined := s.resolver.Resolve(s.store.Verdicts())
	s.outcome = &models.VerificationOutcome{
		StudentID:      s.studentID,
		Status:         status,
		DeclinedFields: declined,
		ReviewedBy:     reviewedBy,
		ReviewedAt:     time.Now().UTC(),
	}
	s.state = models.SessionFinalized
}
