package service

import (
	"strings"
	"time"

	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/utils"
)

// NotInterestedReason 未填写原因时标记无意向使用的默认原因
const NotInterestedReason = "Client marked as not interested"

// FollowUpMachine 跟进记录状态机
// open -> close / not-interested，终态只接受评论。
type FollowUpMachine struct {
	now func() time.Time
}

// NewFollowUpMachine 创建状态机，now为空时使用系统时间
func NewFollowUpMachine(now func() time.Time) *FollowUpMachine {
	if now == nil {
		now = time.Now
	}
	return &FollowUpMachine{now: now}
}

// Close 关闭跟进记录，结果文本作为系统评论追加
func (m *FollowUpMachine) Close(r *models.FollowUpRecord, resultText string, action models.ActionTaken, byName string) error {
	return m.transition(r, models.CaseStatusClose, resultText, action, byName)
}

// MarkNotInterested 标记客户无意向
func (m *FollowUpMachine) MarkNotInterested(r *models.FollowUpRecord, reason string, action models.ActionTaken, byName string) error {
	return m.transition(r, models.CaseStatusNotInterested, reason, action, byName)
}

// Transition 按目标状态分发
func (m *FollowUpMachine) Transition(r *models.FollowUpRecord, to models.CaseStatus, text string, action models.ActionTaken, byName string) error {
	if !to.IsTerminal() {
		return utils.ErrInvalidStatus
	}
	return m.transition(r, to, text, action, byName)
}

func (m *FollowUpMachine) transition(r *models.FollowUpRecord, to models.CaseStatus, text string, action models.ActionTaken, byName string) error {
	result := strings.TrimSpace(text)
	if result == "" {
		return utils.ErrEmptyResult
	}
	if r.CaseStatus != models.CaseStatusOpen {
		return utils.ErrInvalidTransition
	}
	entry, err := m.newEntry(result, action, byName)
	if err != nil {
		return err
	}

	// 校验全部通过后才修改记录
	r.CaseStatus = to
	r.Result = result
	r.Comments.Append(entry)
	return nil
}

// AddComment 追加评论，任何状态都允许，不改变状态
func (m *FollowUpMachine) AddComment(r *models.FollowUpRecord, text string, action models.ActionTaken, byName string) error {
	entry, err := m.newEntry(text, action, byName)
	if err != nil {
		return err
	}
	r.Comments.Append(entry)
	return nil
}

// NewComment 只做校验并构建评论，不修改任何记录
func (m *FollowUpMachine) NewComment(text string, action models.ActionTaken, byName string) (models.CommentEntry, error) {
	return m.newEntry(text, action, byName)
}

func (m *FollowUpMachine) newEntry(text string, action models.ActionTaken, byName string) (models.CommentEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.CommentEntry{}, utils.ErrEmptyComment
	}
	action = action.OrDefault()
	if !action.IsValid() {
		return models.CommentEntry{}, utils.ErrInvalidAction
	}
	return models.CommentEntry{
		Text:          text,
		ActionTaken:   action,
		CommentByName: byName,
		CommentDate:   m.now(),
	}, nil
}
