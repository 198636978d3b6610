package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuslink/sar-portal-api/internal/models"
	appErrors "github.com/campuslink/sar-portal-api/pkg/errors"
)

func verifyAllSections(t *testing.T, session *VerificationSession) {
	t.Helper()
	for range models.SectionOrder {
		require.NoError(t, session.VerifySection(session.CurrentSection()))
		require.NoError(t, session.Advance("reviewer-1"))
	}
}

func TestSessionAllCorrectApproves(t *testing.T) {
	session := NewVerificationSession("s-1")
	verifyAllSections(t, session)

	require.Equal(t, models.SessionFinalized, session.State())
	outcome := session.Outcome()
	require.NotNil(t, outcome)
	assert.Equal(t, models.VerificationApproved, outcome.Status)
	assert.Empty(t, outcome.DeclinedFields)
	assert.Equal(t, "reviewer-1", outcome.ReviewedBy)
}

func TestSessionAnyIncorrectDeclines(t *testing.T) {
	session := NewVerificationSession("s-1")
	require.NoError(t, session.VerifySection(models.SectionPersonal))
	require.NoError(t, session.RecordVerdict(models.SectionPersonal, "phone", false))
	require.NoError(t, session.Advance("reviewer-1"))

	for _, section := range models.SectionOrder[1:] {
		require.NoError(t, session.VerifySection(section))
		require.NoError(t, session.Advance("reviewer-1"))
	}

	outcome := session.Outcome()
	require.NotNil(t, outcome)
	assert.Equal(t, models.VerificationDeclined, outcome.Status)
	require.Len(t, outcome.DeclinedFields, 1)
	assert.Equal(t, models.FieldRef{Section: models.SectionPersonal, Field: "phone"}, outcome.DeclinedFields[0])
}

func TestSessionSingleBadDocumentDeclinesOnlyThatField(t *testing.T) {
	session := NewVerificationSession("s-1")
	for _, section := range models.SectionOrder[:3] {
		require.NoError(t, session.VerifySection(section))
		require.NoError(t, session.Advance("reviewer-1"))
	}
	require.NoError(t, session.VerifySection(models.SectionDocuments))
	require.NoError(t, session.RecordVerdict(models.SectionDocuments, "aadhar_card", false))
	require.NoError(t, session.Advance("reviewer-1"))

	outcome := session.Outcome()
	require.NotNil(t, outcome)
	assert.Equal(t, models.VerificationDeclined, outcome.Status)
	assert.Equal(t, []models.FieldRef{{Section: models.SectionDocuments, Field: "aadhar_card"}}, outcome.DeclinedFields)
}

func TestSessionDeclinedFieldsFollowTraversalOrder(t *testing.T) {
	session := NewVerificationSession("s-1")
	// Judge fields out of order across sections, then finalize early.
	require.NoError(t, session.RecordVerdict(models.SectionPersonal, "email", false))
	require.NoError(t, session.RecordVerdict(models.SectionPersonal, "first_name", false))
	require.NoError(t, session.RecordVerdict(models.SectionAcademic, "course", false))

	outcome, err := session.FinalizeNow("reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, []models.FieldRef{
		{Section: models.SectionPersonal, Field: "first_name"},
		{Section: models.SectionPersonal, Field: "email"},
		{Section: models.SectionAcademic, Field: "course"},
	}, outcome.DeclinedFields)
}

func TestSessionAdvanceBlockedUntilSectionComplete(t *testing.T) {
	session := NewVerificationSession("s-1")
	require.NoError(t, session.RecordVerdict(models.SectionPersonal, "first_name", true))

	err := session.Advance("reviewer-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrSectionIncomplete.Code, appErr.Code)
	assert.Equal(t, models.SectionPersonal, session.CurrentSection())

	require.NoError(t, session.VerifySection(models.SectionPersonal))
	require.NoError(t, session.Advance("reviewer-1"))
	assert.Equal(t, models.SectionAcademic, session.CurrentSection())
}

func TestSessionRetreatKeepsVerdicts(t *testing.T) {
	session := NewVerificationSession("s-1")
	require.NoError(t, session.VerifySection(models.SectionPersonal))
	require.NoError(t, session.Advance("reviewer-1"))
	require.NoError(t, session.RecordVerdict(models.SectionAcademic, "course", false))

	require.NoError(t, session.Retreat())
	assert.Equal(t, models.SectionPersonal, session.CurrentSection())
	assert.Equal(t, models.VerdictIncorrect, session.Store().Verdict(models.SectionAcademic, "course"))

	// Retreating from the first section stays put.
	require.NoError(t, session.Retreat())
	assert.Equal(t, models.SectionPersonal, session.CurrentSection())
}

func TestSessionFinalizeNowUsesPartialVerdicts(t *testing.T) {
	session := NewVerificationSession("s-1")
	require.NoError(t, session.RecordVerdict(models.SectionPersonal, "first_name", true))

	outcome, err := session.FinalizeNow("reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, outcome.Status)
	assert.Equal(t, models.SessionFinalized, session.State())

	_, err = session.FinalizeNow("reviewer-1")
	assert.ErrorIs(t, err, appErrors.ErrSessionFinalized)
}

func TestSessionFinalizedRejectsMutation(t *testing.T) {
	session := NewVerificationSession("s-1")
	_, err := session.FinalizeNow("reviewer-1")
	require.NoError(t, err)

	assert.ErrorIs(t, session.RecordVerdict(models.SectionPersonal, "phone", true), appErrors.ErrSessionFinalized)
	assert.ErrorIs(t, session.VerifySection(models.SectionPersonal), appErrors.ErrSessionFinalized)
	assert.ErrorIs(t, session.Advance("reviewer-1"), appErrors.ErrSessionFinalized)
	assert.ErrorIs(t, session.Retreat(), appErrors.ErrSessionFinalized)
}

func TestSessionRejectsUnknownField(t *testing.T) {
	session := NewVerificationSession("s-1")
	err := session.RecordVerdict(models.SectionPersonal, "no_such_field", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnknownField.Code, appErrors.FromError(err).Code)

	err = session.RecordVerdict(models.SectionAcademic, "photo", true)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnknownField.Code, appErrors.FromError(err).Code)
}

func TestDecidedSessionOpensFinalized(t *testing.T) {
	verdicts := models.VerdictMap{}
	verdicts.Set(models.SectionPersonal, "phone", models.VerdictIncorrect)
	existing := &models.VerificationOutcome{
		StudentID:      "s-1",
		Status:         models.VerificationDeclined,
		DeclinedFields: []models.FieldRef{{Section: models.SectionPersonal, Field: "phone"}},
	}

	session := NewDecidedSession("s-1", existing, verdicts)
	assert.Equal(t, models.SessionFinalized, session.State())
	assert.Equal(t, existing, session.Outcome())
	assert.True(t, session.Gate().CanAdvance(models.SectionDocuments))
	assert.ErrorIs(t, session.RecordVerdict(models.SectionPersonal, "phone", true), appErrors.ErrSessionFinalized)
}

func TestGateCompletedSectionsTracksUnsetVerdicts(t *testing.T) {
	session := NewVerificationSession("s-1")
	assert.Empty(t, session.Gate().CompletedSections())

	require.NoError(t, session.VerifySection(models.SectionPersonal))
	require.NoError(t, session.VerifySection(models.SectionParent))
	assert.Equal(t, []models.Section{models.SectionPersonal, models.SectionParent}, session.Gate().CompletedSections())

	// Incorrect verdicts still count as reviewed.
	for _, field := range models.SectionFields(models.SectionAcademic) {
		require.NoError(t, session.RecordVerdict(models.SectionAcademic, field, false))
	}
	assert.Contains(t, session.Gate().CompletedSections(), models.SectionAcademic)
}

func TestResolverIsDeterministicOverMap(t *testing.T) {
	verdicts := models.VerdictMap{}
	verdicts.Set(models.SectionDocuments, "photo", models.VerdictIncorrect)
	verdicts.Set(models.SectionAcademic, "branch", models.VerdictIncorrect)
	verdicts.Set(models.SectionPersonal, "email", models.VerdictCorrect)

	var resolver DecisionResolver
	for i := 0; i < 10; i++ {
		status, declined := resolver.Resolve(verdicts)
		assert.Equal(t, models.VerificationDeclined, status)
		assert.Equal(t, []models.FieldRef{
			{Section: models.SectionAcademic, Field: "branch"},
			{Section: models.SectionDocuments, Field: "photo"},
		}, declined)
	}
}
