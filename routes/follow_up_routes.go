package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_followup/controllers"
)

// RegisterFollowUpRoutes 注册跟进记录相关路由
func RegisterFollowUpRoutes(router *gin.Engine, fc *controllers.FollowUpController, auth gin.HandlerFunc) {
	followUpGroup := router.Group("/api/follow-ups")
	followUpGroup.Use(auth)

	// 按状态获取跟进记录
	followUpGroup.GET("", fc.ListFollowUps)
	followUpGroup.GET("/overview", fc.GetOverview)
	followUpGroup.GET("/:id", fc.GetFollowUp)

	// 状态变更
	followUpGroup.PUT("/:id/close", fc.CloseFollowUp)
	followUpGroup.PUT("/:id/not-interested", fc.MarkNotInterested)

	followUpGroup.POST("/:id/comments", fc.AddComment)
	followUpGroup.DELETE("/:id", fc.DeleteFollowUp)
}
