package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/utils"
)

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func openRecord(id string) models.FollowUpRecord {
	return models.FollowUpRecord{
		ID:         id,
		CaseStatus: models.CaseStatusOpen,
		Priority:   models.PriorityMedium,
		LeadData:   models.LeadData{ClientName: "Ravi", ClientPhone: "+91 98765 43210"},
		Comments: models.CommentLog{
			{Text: "first contact", ActionTaken: models.ActionCall, CommentDate: fixedNow.Add(-48 * time.Hour)},
		},
	}
}

func TestCloseAppendsSystemComment(t *testing.T) {
	m := NewFollowUpMachine(clock)
	r := openRecord("f1")
	r.Comments = append(r.Comments,
		models.CommentEntry{Text: "c2", CommentDate: fixedNow.Add(-24 * time.Hour)},
		models.CommentEntry{Text: "c3", CommentDate: fixedNow.Add(-time.Hour)},
	)

	require.NoError(t, m.Close(&r, "  Deal signed  ", "", "Asha"))

	assert.Equal(t, models.CaseStatusClose, r.CaseStatus)
	assert.Equal(t, "Deal signed", r.Result)
	require.Equal(t, 4, r.Comments.Len())
	last, _ := r.Comments.Last()
	assert.Equal(t, "Deal signed", last.Text)
	assert.Equal(t, models.ActionOther, last.ActionTaken)
	assert.Equal(t, "Asha", last.CommentByName)
	assert.Equal(t, fixedNow, last.CommentDate)
	assert.Equal(t, 2, models.NewStatusUpdate(&r).WordCount)
}

func TestTerminalStatusRejectsTransitions(t *testing.T) {
	m := NewFollowUpMachine(clock)
	r := openRecord("f1")
	require.NoError(t, m.MarkNotInterested(&r, NotInterestedReason, models.ActionCall, "Asha"))
	before := r.Clone()

	err := m.Close(&r, "changed my mind", models.ActionCall, "Asha")
	assert.ErrorIs(t, err, utils.ErrInvalidTransition)
	assert.Equal(t, before, r, "rejected transition leaves the record untouched")

	// 终态仍然可以评论
	require.NoError(t, m.AddComment(&r, "called again anyway", models.ActionCall, "Asha"))
	assert.Equal(t, models.CaseStatusNotInterested, r.CaseStatus)
	assert.Equal(t, before.Comments.Len()+1, r.Comments.Len())
}

func TestTransitionValidationOrder(t *testing.T) {
	m := NewFollowUpMachine(clock)

	closed := openRecord("f1")
	closed.CaseStatus = models.CaseStatusClose
	closed.Result = "done"
	assert.ErrorIs(t, m.Close(&closed, "   ", "", "x"), utils.ErrEmptyResult, "blank result is reported first")

	pending := openRecord("f0")
	before := pending.Clone()
	assert.ErrorIs(t, m.Close(&pending, "", models.ActionCall, "x"), utils.ErrEmptyResult)
	assert.ErrorIs(t, m.MarkNotInterested(&pending, " \t ", "", "x"), utils.ErrEmptyResult)
	assert.Equal(t, before, pending)

	r := openRecord("f2")
	assert.ErrorIs(t, m.Close(&r, "ok", "fax", "x"), utils.ErrInvalidAction)
	assert.Equal(t, models.CaseStatusOpen, r.CaseStatus)
	assert.Equal(t, 1, r.Comments.Len())

	assert.ErrorIs(t, m.Transition(&r, models.CaseStatusOpen, "reopen", "", "x"), utils.ErrInvalidStatus)
}

func TestAddCommentValidation(t *testing.T) {
	m := NewFollowUpMachine(clock)
	r := openRecord("f1")

	assert.ErrorIs(t, m.AddComment(&r, " \n ", models.ActionCall, "x"), utils.ErrEmptyComment)
	assert.ErrorIs(t, m.AddComment(&r, "hello", "smoke_signal", "x"), utils.ErrInvalidAction)
	assert.Equal(t, 1, r.Comments.Len())

	require.NoError(t, m.AddComment(&r, "hello", models.ActionEmail, "x"))
	require.NoError(t, m.AddComment(&r, "hello", models.ActionEmail, "x"))
	assert.Equal(t, 3, r.Comments.Len())
	assert.Equal(t, models.CaseStatusOpen, r.CaseStatus)
}
