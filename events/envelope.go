package events

import (
	"time"

	"github.com/google/uuid"
)

// 事件类型
const (
	TypeFollowUpClosed        = "followups.closed.v1"
	TypeFollowUpNotInterested = "followups.not_interested.v1"
	TypeFollowUpCommented     = "followups.commented.v1"
	TypeFollowUpDeleted       = "followups.deleted.v1"
	TypeAssignmentSubmitted   = "assignments.submitted.v1"
	TypeOverdueDigest         = "followups.overdue_digest.v1"
)

const producer = "crm-followup"

type Meta struct {
	// 请求链路ID
	CorrelationID *string `json:"correlation_id,omitempty"`
	// 事件唯一ID
	ID       string    `json:"id"`
	Producer *string   `json:"producer,omitempty"`
	Time     time.Time `json:"time"`
	// 事件名称和版本，如 followups.closed.v1
	Type string `json:"type"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// NewEnvelope 构建事件，correlationID为空时使用事件ID
func NewEnvelope(eventType, correlationID string, data any) Envelope {
	id := uuid.NewString()
	if correlationID == "" {
		correlationID = id
	}
	p := producer
	return Envelope{
		Meta: Meta{
			CorrelationID: &correlationID,
			ID:            id,
			Producer:      &p,
			Time:          time.Now().UTC(),
			Type:          eventType,
		},
		Data: data,
	}
}

// FollowUpChanged 跟进记录变更事件数据
type FollowUpChanged struct {
	FollowUpID  string `json:"follow_up_id"`
	CaseStatus  string `json:"case_status,omitempty"`
	Result      string `json:"result,omitempty"`
	ActionTaken string `json:"action_taken,omitempty"`
	OperatorID  string `json:"operator_id,omitempty"`
}

// AssignmentSubmitted 分配提交事件数据
type AssignmentSubmitted struct {
	RequestID  string   `json:"request_id"`
	EntityType string   `json:"entity_type"`
	TargetIDs  []string `json:"target_ids"`
	EmployeeID string   `json:"employee_id"`
	Bulk       bool     `json:"bulk"`
	OperatorID string   `json:"operator_id,omitempty"`
}

// OverdueDigest 每日逾期汇总
type OverdueDigest struct {
	OpenCount    int       `json:"open_count"`
	OverdueCount int       `json:"overdue_count"`
	OverdueIDs   []string  `json:"overdue_ids"`
	GeneratedAt  time.Time `json:"generated_at"`
}
