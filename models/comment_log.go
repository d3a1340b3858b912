package models

import (
	"strings"
	"time"
)

// ActionTaken 评论记录的联系方式
type ActionTaken string

const (
	ActionCall              ActionTaken = "call"
	ActionEmail             ActionTaken = "email"
	ActionMeeting           ActionTaken = "meeting"
	ActionSiteVisit         ActionTaken = "site_visit"
	ActionDocumentSent      ActionTaken = "document_sent"
	ActionFollowUpScheduled ActionTaken = "follow_up_scheduled"
	ActionOther             ActionTaken = "other"
)

// ActionTakenValues 所有合法的联系方式
var ActionTakenValues = []ActionTaken{
	ActionCall,
	ActionEmail,
	ActionMeeting,
	ActionSiteVisit,
	ActionDocumentSent,
	ActionFollowUpScheduled,
	ActionOther,
}

// IsValid 验证联系方式是否在枚举内
func (a ActionTaken) IsValid() bool {
	for _, v := range ActionTakenValues {
		if v == a {
			return true
		}
	}
	return false
}

// OrDefault 未指定时默认为 other
func (a ActionTaken) OrDefault() ActionTaken {
	if a == "" {
		return ActionOther
	}
	return a
}

// CommentEntry 单条跟进评论，追加后不再修改
type CommentEntry struct {
	Text          string      `json:"text" bson:"text"`
	ActionTaken   ActionTaken `json:"actionTaken" bson:"actionTaken"`
	CommentByName string      `json:"commentByName" bson:"commentByName"`
	CommentDate   time.Time   `json:"commentDate" bson:"commentDate"`
}

// CommentLog 按时间顺序追加的评论记录
type CommentLog []CommentEntry

// Append 追加评论。只拒绝空内容，从不根据已有内容去重。
// 时间早于最后一条的评论按最后一条的时间记录，保证时间非递减。
func (l *CommentLog) Append(entry CommentEntry) bool {
	if strings.TrimSpace(entry.Text) == "" {
		return false
	}
	entry.ActionTaken = entry.ActionTaken.OrDefault()
	if n := len(*l); n > 0 {
		last := (*l)[n-1].CommentDate
		if entry.CommentDate.Before(last) {
			entry.CommentDate = last
		}
	}
	*l = append(*l, entry)
	return true
}

// MostRecent 返回最近的n条评论，最新的在前
func (l CommentLog) MostRecent(n int) []CommentEntry {
	if n <= 0 || len(l) == 0 {
		return []CommentEntry{}
	}
	if n > len(l) {
		n = len(l)
	}
	out := make([]CommentEntry, 0, n)
	for i := len(l) - 1; i >= len(l)-n; i-- {
		out = append(out, l[i])
	}
	return out
}

// Len 评论数量
func (l CommentLog) Len() int {
	return len(l)
}

// Last 最后一条评论
func (l CommentLog) Last() (CommentEntry, bool) {
	if len(l) == 0 {
		return CommentEntry{}, false
	}
	return l[len(l)-1], true
}
