package models

// EntityType 分配对象类型
type EntityType string

const (
	EntityLead EntityType = "lead"
	EntityUser EntityType = "user"
)

// IsValid 验证对象类型
func (t EntityType) IsValid() bool {
	return t == EntityLead || t == EntityUser
}

// AssignmentTarget 待分配的单个对象
type AssignmentTarget struct {
	ID   string     `json:"id" binding:"required"`
	Type EntityType `json:"type" binding:"required,entitytype"`
}

// AssignmentRequest 分配请求，不在本服务内持久化
type AssignmentRequest struct {
	TargetIDs  []string   `json:"targetIds"`
	EntityType EntityType `json:"entityType"`
	EmployeeID string     `json:"employeeId"`
	Priority   Priority   `json:"priority,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// IsBulk 多个对象时走批量接口
func (r AssignmentRequest) IsBulk() bool {
	return len(r.TargetIDs) > 1
}

// CapacityTier 员工负载分级
type CapacityTier string

const (
	CapacityNormal       CapacityTier = "normal"
	CapacityNearCapacity CapacityTier = "near-capacity"
	CapacityFull         CapacityTier = "full"
)

// nearCapacityRatio 负载达到80%提示接近满载
const nearCapacityRatio = 0.8

// EmployeeCapacity 员工负载只读视图
type EmployeeCapacity struct {
	EmployeeID    string `json:"employeeId" msgpack:"employeeId"`
	EmployeeName  string `json:"employeeName,omitempty" msgpack:"employeeName"`
	AssignedCount int    `json:"assignedCount" msgpack:"assignedCount"`
	MaxCapacity   int    `json:"maxCapacity" msgpack:"maxCapacity"`
}

// IsFull 已满载，唯一的硬性约束
func (c EmployeeCapacity) IsFull() bool {
	return c.AssignedCount >= c.MaxCapacity
}

// Ratio 已分配比例
func (c EmployeeCapacity) Ratio() float64 {
	if c.MaxCapacity <= 0 {
		return 1
	}
	return float64(c.AssignedCount) / float64(c.MaxCapacity)
}

// Tier 负载分级，仅用于展示
func (c EmployeeCapacity) Tier() CapacityTier {
	switch {
	case c.IsFull():
		return CapacityFull
	case c.Ratio() >= nearCapacityRatio:
		return CapacityNearCapacity
	default:
		return CapacityNormal
	}
}

// CapacityView 附带分级的负载信息
type CapacityView struct {
	EmployeeCapacity
	Tier      CapacityTier `json:"tier"`
	Remaining int          `json:"remaining"`
}

// NewCapacityView 构建展示用负载信息
func NewCapacityView(c EmployeeCapacity) CapacityView {
	remaining := c.MaxCapacity - c.AssignedCount
	if remaining < 0 {
		remaining = 0
	}
	return CapacityView{EmployeeCapacity: c, Tier: c.Tier(), Remaining: remaining}
}

// CapacityIndex 按员工ID索引
func CapacityIndex(list []EmployeeCapacity) map[string]EmployeeCapacity {
	out := make(map[string]EmployeeCapacity, len(list))
	for _, c := range list {
		out[c.EmployeeID] = c
	}
	return out
}
