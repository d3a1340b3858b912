package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/utils"
)

func capacityIndex() map[string]models.EmployeeCapacity {
	return models.CapacityIndex([]models.EmployeeCapacity{
		{EmployeeID: "emp-free", EmployeeName: "Meera", AssignedCount: 2, MaxCapacity: 10},
		{EmployeeID: "emp-near", EmployeeName: "Arjun", AssignedCount: 9, MaxCapacity: 10},
		{EmployeeID: "emp-full", EmployeeName: "Kiran", AssignedCount: 10, MaxCapacity: 10},
	})
}

func TestPlanBulkAssignment(t *testing.T) {
	targets := TargetsOf(models.EntityLead, []string{"l1", "l2", "l3"})

	req, err := PlanAssignment(targets, "emp-free", capacityIndex(), models.PriorityHigh, "  vip  ")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1", "l2", "l3"}, req.TargetIDs)
	assert.Equal(t, models.EntityLead, req.EntityType)
	assert.Equal(t, "emp-free", req.EmployeeID)
	assert.Equal(t, models.PriorityHigh, req.Priority)
	assert.Equal(t, "vip", req.Notes)
	assert.True(t, req.IsBulk())
}

func TestPlanSingleAndBulkShareShape(t *testing.T) {
	single, err := PlanAssignment(TargetsOf(models.EntityUser, []string{"u1"}), "emp-near", capacityIndex(), "", "")
	require.NoError(t, err, "near capacity is only advisory")
	assert.False(t, single.IsBulk())
	assert.Equal(t, []string{"u1"}, single.TargetIDs)
}

func TestPlanRejectsFullEmployee(t *testing.T) {
	_, err := PlanAssignment(TargetsOf(models.EntityLead, []string{"l1"}), "emp-full", capacityIndex(), "", "")
	assert.ErrorIs(t, err, utils.ErrEmployeeAtCapacity)
}

func TestPlanValidation(t *testing.T) {
	caps := capacityIndex()

	_, err := PlanAssignment(nil, "emp-free", caps, "", "")
	assert.ErrorIs(t, err, utils.ErrEmptyTargets)

	mixed := []models.AssignmentTarget{{ID: "l1", Type: models.EntityLead}, {ID: "u1", Type: models.EntityUser}}
	_, err = PlanAssignment(mixed, "emp-free", caps, "", "")
	assert.ErrorIs(t, err, utils.ErrMixedEntityTypes)

	_, err = PlanAssignment(TargetsOf(models.EntityLead, []string{"l1"}), "ghost", caps, "", "")
	assert.ErrorIs(t, err, utils.ErrUnknownEmployee)

	_, err = PlanAssignment(TargetsOf(models.EntityLead, []string{"l1"}), " ", caps, "", "")
	assert.ErrorIs(t, err, utils.ErrUnknownEmployee)

	_, err = PlanAssignment(TargetsOf("account", []string{"a1"}), "emp-free", caps, "", "")
	require.Error(t, err)
	assert.Equal(t, "BAD_REQUEST", utils.ToApiError(err).ErrorCode)

	_, err = PlanAssignment(TargetsOf(models.EntityLead, []string{""}), "emp-free", caps, "", "")
	require.Error(t, err)

	_, err = PlanAssignment(TargetsOf(models.EntityLead, []string{"l1"}), "emp-free", caps, "critical", "")
	require.Error(t, err)
}

func TestPlanDeduplicatesTargets(t *testing.T) {
	req, err := PlanAssignment(TargetsOf(models.EntityLead, []string{"l2", "l1", "l2", " l1 "}), "emp-free", capacityIndex(), "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"l2", "l1"}, req.TargetIDs)
}
