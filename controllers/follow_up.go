package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/service"
	"github.com/BerniceZTT/crm_followup/utils"
)

// FollowUpController 跟进记录接口
type FollowUpController struct {
	svc *service.FollowUpService
}

// NewFollowUpController 创建控制器
func NewFollowUpController(svc *service.FollowUpService) *FollowUpController {
	return &FollowUpController{svc: svc}
}

// ListFollowUps 按状态获取跟进记录，逾期的排在最前
func (fc *FollowUpController) ListFollowUps(c *gin.Context) {
	status := models.CaseStatus(c.Query("caseStatus"))

	list, err := fc.svc.List(c.Request.Context(), status)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"followUps": list.FollowUps,
		"counts":    list.Counts,
	})
}

// GetOverview 各状态数量及逾期数量
func (fc *FollowUpController) GetOverview(c *gin.Context) {
	overview, err := fc.svc.Overview(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overview": overview})
}

// GetFollowUp 跟进记录详情
func (fc *FollowUpController) GetFollowUp(c *gin.Context) {
	view, err := fc.svc.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"followUp": view})
}

// CloseFollowUp 关闭跟进记录
func (fc *FollowUpController) CloseFollowUp(c *gin.Context) {
	var input models.CloseFollowUpInput
	if !bindJSON(c, &input) {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := fc.svc.Close(c.Request.Context(), c.Param("id"), input.Result, input.ActionTaken, user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "跟进记录已关闭", "followUp": view})
}

// MarkNotInterested 标记客户无意向
func (fc *FollowUpController) MarkNotInterested(c *gin.Context) {
	var input models.NotInterestedInput
	// 原因可以不填，允许空请求体（包括chunked的空请求体）
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		utils.HandleError(c, bindingError(err))
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := fc.svc.MarkNotInterested(c.Request.Context(), c.Param("id"), input.Reason, input.ActionTaken, user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已标记为无意向", "followUp": view})
}

// AddComment 追加跟进评论
func (fc *FollowUpController) AddComment(c *gin.Context) {
	var input models.AddCommentInput
	if !bindJSON(c, &input) {
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := fc.svc.AddComment(c.Request.Context(), c.Param("id"), input.Text, input.ActionTaken, user)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "评论已添加", "followUp": view})
}

// DeleteFollowUp 删除跟进记录
func (fc *FollowUpController) DeleteFollowUp(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := fc.svc.Delete(c.Request.Context(), c.Param("id"), user); err != nil {
		utils.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "跟进记录已删除"})
}
