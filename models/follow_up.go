package models

import (
	"fmt"
	"strings"
	"time"
)

// CaseStatus 跟进状态枚举
type CaseStatus string

const (
	CaseStatusOpen          CaseStatus = "open"           // 跟进中
	CaseStatusClose         CaseStatus = "close"          // 已成交/已关闭
	CaseStatusNotInterested CaseStatus = "not-interested" // 客户无意向
)

// IsValid 验证状态是否有效
func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusOpen, CaseStatusClose, CaseStatusNotInterested:
		return true
	}
	return false
}

// IsTerminal 终态不再接受状态变更，只允许追加评论
func (s CaseStatus) IsTerminal() bool {
	return s == CaseStatusClose || s == CaseStatusNotInterested
}

// Priority 优先级枚举，仅用于展示排序和颜色
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityRank = map[Priority]int{
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

// IsValid 验证优先级是否有效
func (p Priority) IsValid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Rank 返回排序权重，未知优先级为0
func (p Priority) Rank() int {
	return priorityRank[p]
}

// LeadData 线索/客户的快照信息，核心逻辑只读
type LeadData struct {
	ClientName  string `json:"clientName" bson:"clientName"`
	ClientPhone string `json:"clientPhone" bson:"clientPhone"`
	Location    string `json:"location" bson:"location"`
}

// FollowUpRecord 跟进记录
type FollowUpRecord struct {
	ID               string     `json:"_id" bson:"_id"`
	CaseStatus       CaseStatus `json:"caseStatus" bson:"caseStatus"`
	LeadType         string     `json:"leadType" bson:"leadType"`
	Priority         Priority   `json:"priority" bson:"priority"`
	LeadData         LeadData   `json:"leadData" bson:"leadData"`
	NextFollowUpDate *time.Time `json:"nextFollowUpDate,omitempty" bson:"nextFollowUpDate,omitempty"`
	Result           string     `json:"result,omitempty" bson:"result,omitempty"`
	Comments         CommentLog `json:"comments" bson:"comments"`
	CreatedAt        time.Time  `json:"createdAt" bson:"createdAt"`
}

// Validate 在边界处检查远端返回的记录，缺失字段直接报错而不是静默补默认值
func (r *FollowUpRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("跟进记录缺少_id")
	}
	if !r.CaseStatus.IsValid() {
		return fmt.Errorf("跟进记录 %s 的状态无效: %q", r.ID, r.CaseStatus)
	}
	if r.Priority != "" && !r.Priority.IsValid() {
		return fmt.Errorf("跟进记录 %s 的优先级无效: %q", r.ID, r.Priority)
	}
	hasResult := strings.TrimSpace(r.Result) != ""
	if hasResult != r.CaseStatus.IsTerminal() {
		return fmt.Errorf("跟进记录 %s 的结果与状态不一致: status=%s", r.ID, r.CaseStatus)
	}
	for i, c := range r.Comments {
		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("跟进记录 %s 的第%d条评论内容为空", r.ID, i+1)
		}
	}
	return nil
}

// Clone 深拷贝记录，避免评论切片被多个副本共享
func (r FollowUpRecord) Clone() FollowUpRecord {
	out := r
	if r.NextFollowUpDate != nil {
		d := *r.NextFollowUpDate
		out.NextFollowUpDate = &d
	}
	if r.Comments != nil {
		out.Comments = make(CommentLog, len(r.Comments))
		copy(out.Comments, r.Comments)
	}
	return out
}

// FollowUpCounts 各状态汇总
type FollowUpCounts struct {
	Open   int `json:"open"`
	Closed int `json:"closed"`
}

// FollowUpPage 按状态查询的结果
type FollowUpPage struct {
	FollowUps []FollowUpRecord `json:"followUps"`
	Counts    FollowUpCounts   `json:"counts"`
}

// StatusUpdate 状态变更请求
type StatusUpdate struct {
	CaseStatus CaseStatus `json:"caseStatus"`
	Result     string     `json:"result"`
	WordCount  int        `json:"wordCount"`
}

// NewStatusUpdate 根据已完成状态变更的记录构建同步请求
func NewStatusUpdate(r *FollowUpRecord) StatusUpdate {
	return StatusUpdate{
		CaseStatus: r.CaseStatus,
		Result:     r.Result,
		WordCount:  len(strings.Fields(r.Result)),
	}
}

// FollowUpView 返回给移动端的记录，附带逾期标记
type FollowUpView struct {
	FollowUpRecord
	Overdue        bool           `json:"overdue"`
	CommentCount   int            `json:"commentCount"`
	RecentComments []CommentEntry `json:"recentComments,omitempty"`
	DisplayPhone   string         `json:"displayPhone,omitempty"`
}

// DeleteFollowUp 从工作集合中移除记录，不可恢复，任何状态都允许。
// 返回新的切片，原切片不变。
func DeleteFollowUp(records []FollowUpRecord, id string) ([]FollowUpRecord, bool) {
	for i := range records {
		if records[i].ID == id {
			out := make([]FollowUpRecord, 0, len(records)-1)
			out = append(out, records[:i]...)
			out = append(out, records[i+1:]...)
			return out, true
		}
	}
	return records, false
}
