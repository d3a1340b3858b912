package service

import (
	"strings"

	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/utils"
)

// PlanAssignment 校验并构建分配请求，不做任何持久化。
// 单个和批量分配走同一逻辑，由同步层决定调用哪个接口。
// 任一校验失败都不会产生请求，不存在部分分配。
func PlanAssignment(
	targets []models.AssignmentTarget,
	employeeID string,
	capacities map[string]models.EmployeeCapacity,
	priority models.Priority,
	notes string,
) (models.AssignmentRequest, error) {
	if len(targets) == 0 {
		return models.AssignmentRequest{}, utils.ErrEmptyTargets
	}

	entityType := targets[0].Type
	ids := make([]string, 0, len(targets))
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if !t.Type.IsValid() {
			return models.AssignmentRequest{}, utils.CreateBadRequestError("无效的分配对象类型: " + string(t.Type))
		}
		if t.Type != entityType {
			return models.AssignmentRequest{}, utils.ErrMixedEntityTypes
		}
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return models.AssignmentRequest{}, utils.CreateBadRequestError("分配对象ID不能为空")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	employeeID = strings.TrimSpace(employeeID)
	capacity, ok := capacities[employeeID]
	if employeeID == "" || !ok {
		return models.AssignmentRequest{}, utils.ErrUnknownEmployee
	}
	// 接近满载只做提示，满载才拒绝
	if capacity.IsFull() {
		return models.AssignmentRequest{}, utils.ErrEmployeeAtCapacity
	}

	if priority != "" && !priority.IsValid() {
		return models.AssignmentRequest{}, utils.CreateBadRequestError("无效的优先级: " + string(priority))
	}

	return models.AssignmentRequest{
		TargetIDs:  ids,
		EntityType: entityType,
		EmployeeID: employeeID,
		Priority:   priority,
		Notes:      strings.TrimSpace(notes),
	}, nil
}

// TargetsOf 将同类ID列表转换为分配对象
func TargetsOf(entityType models.EntityType, ids []string) []models.AssignmentTarget {
	out := make([]models.AssignmentTarget, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.AssignmentTarget{ID: id, Type: entityType})
	}
	return out
}
