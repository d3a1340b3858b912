package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 分配方式
const (
	AssignmentOperationSingle = "single"
	AssignmentOperationBulk   = "bulk"
)

// AssignmentHistory 分配历史记录，只记录提交到远端并确认成功的分配
type AssignmentHistory struct {
	ID            primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	RequestID     string             `json:"requestId" bson:"requestid"`
	EntityType    EntityType         `json:"entityType" bson:"entitytype"`
	TargetIDs     []string           `json:"targetIds" bson:"targetids"`
	EmployeeID    string             `json:"employeeId" bson:"employeeid"`
	EmployeeName  string             `json:"employeeName,omitempty" bson:"employeename,omitempty"`
	Priority      Priority           `json:"priority,omitempty" bson:"priority,omitempty"`
	Notes         string             `json:"notes,omitempty" bson:"notes,omitempty"`
	OperatorID    string             `json:"operatorId" bson:"operatorid"`
	OperatorName  string             `json:"operatorName" bson:"operatorname"`
	OperationType string             `json:"operationType" bson:"operationtype"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdat"`
}

// AssignmentHistoryFilter 历史查询条件
type AssignmentHistoryFilter struct {
	EmployeeID string
	EntityType EntityType
	TargetID   string
	Limit      int64
}
