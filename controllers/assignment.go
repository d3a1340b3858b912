package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/service"
	"github.com/BerniceZTT/crm_followup/utils"
)

// AssignmentController 分配与员工负载接口
type AssignmentController struct {
	svc *service.AssignmentService
}

// NewAssignmentController 创建控制器
func NewAssignmentController(svc *service.AssignmentService) *AssignmentController {
	return &AssignmentController{svc: svc}
}

// GetEmployeeCapacity 员工负载及分级
func (ac *AssignmentController) GetEmployeeCapacity(c *gin.Context) {
	views, err := ac.svc.CapacityViews(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"employees": views})
}

// Assign 单个或批量分配线索/用户
func (ac *AssignmentController) Assign(c *gin.Context) {
	var input models.AssignInput
	if !bindJSON(c, &input) {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := ac.svc.Assign(c.Request.Context(), input.AllTargets(), input.EmployeeID, input.Priority, input.Notes, user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.LogInfo(map[string]interface{}{
		"requestId": result.RequestID,
		"operator":  user.Username,
		"bulk":      result.Bulk,
	}, "分配请求完成")

	c.JSON(http.StatusOK, gin.H{
		"message":    "分配成功",
		"assignment": result,
	})
}

// GetAssignmentHistory 本地记录的分配历史
func (ac *AssignmentController) GetAssignmentHistory(c *gin.Context) {
	var query models.AssignmentHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.HandleError(c, bindingError(err))
		return
	}

	history, err := ac.svc.History(c.Request.Context(), query.Filter())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
