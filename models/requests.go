package models

// CloseFollowUpInput 关闭跟进记录请求，结果为空由业务层返回EMPTY_RESULT
type CloseFollowUpInput struct {
	Result      string      `json:"result"`
	ActionTaken ActionTaken `json:"actionTaken" binding:"omitempty,actiontaken"`
}

// NotInterestedInput 标记无意向请求
type NotInterestedInput struct {
	Reason      string      `json:"reason"`
	ActionTaken ActionTaken `json:"actionTaken" binding:"omitempty,actiontaken"`
}

// AddCommentInput 追加评论请求
type AddCommentInput struct {
	Text        string      `json:"text"`
	ActionTaken ActionTaken `json:"actionTaken" binding:"omitempty,actiontaken"`
}

// AssignInput 分配请求，leadIds/userIds/targets 三种写法可任选
type AssignInput struct {
	LeadIDs    []string           `json:"leadIds"`
	UserIDs    []string           `json:"userIds"`
	Targets    []AssignmentTarget `json:"targets" binding:"omitempty,dive"`
	EmployeeID string             `json:"employeeId"`
	Priority   Priority           `json:"priority" binding:"omitempty,priority"`
	Notes      string             `json:"notes" binding:"max=1000"`
}

// AllTargets 合并所有写法的分配对象，是否混合类型由分配校验判断
func (in AssignInput) AllTargets() []AssignmentTarget {
	out := make([]AssignmentTarget, 0, len(in.LeadIDs)+len(in.UserIDs)+len(in.Targets))
	for _, id := range in.LeadIDs {
		out = append(out, AssignmentTarget{ID: id, Type: EntityLead})
	}
	for _, id := range in.UserIDs {
		out = append(out, AssignmentTarget{ID: id, Type: EntityUser})
	}
	return append(out, in.Targets...)
}

// AssignmentHistoryQuery 分配历史查询参数
type AssignmentHistoryQuery struct {
	EmployeeID string     `form:"employeeId"`
	EntityType EntityType `form:"entityType" binding:"omitempty,entitytype"`
	TargetID   string     `form:"targetId"`
	Limit      int64      `form:"limit" binding:"omitempty,min=1,max=500"`
}

// Filter 转换为存储层查询条件
func (q AssignmentHistoryQuery) Filter() AssignmentHistoryFilter {
	return AssignmentHistoryFilter{
		EmployeeID: q.EmployeeID,
		EntityType: q.EntityType,
		TargetID:   q.TargetID,
		Limit:      q.Limit,
	}
}
