package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_followup/controllers"
)

// RegisterAssignmentRoutes 注册分配和员工负载路由
func RegisterAssignmentRoutes(router *gin.Engine, ac *controllers.AssignmentController, auth gin.HandlerFunc) {
	router.GET("/api/employees/capacity", auth, ac.GetEmployeeCapacity)

	assignmentRoutes := router.Group("/api/assignments")
	assignmentRoutes.Use(auth)

	// 单个或批量分配
	assignmentRoutes.POST("", ac.Assign)

	// 分配历史（可按员工、对象类型筛选）
	assignmentRoutes.GET("/history", ac.GetAssignmentHistory)
}
