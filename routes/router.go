package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_followup/controllers"
	"github.com/BerniceZTT/crm_followup/middleware"
	"github.com/BerniceZTT/crm_followup/repository"
	"github.com/BerniceZTT/crm_followup/utils"
)

// Handlers 路由依赖
type Handlers struct {
	FollowUps   *controllers.FollowUpController
	Assignments *controllers.AssignmentController
	Signer      *utils.TokenSigner
	Audit       repository.AuditStore
	CORSOrigins []string
	// Components 健康检查中展示的依赖状态，如 audit: mongo
	Components map[string]string
}

// NewRouter 创建Gin实例并挂载中间件和路由
func NewRouter(h Handlers) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(h.CORSOrigins))
	router.Use(middleware.ErrorHandler())
	if h.Audit != nil {
		router.Use(middleware.OperationLoggerMiddleware(h.Audit))
	}

	RegisterRoutes(router, h)
	return router
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, h Handlers) {
	auth := middleware.AuthMiddleware(h.Signer)

	RegisterFollowUpRoutes(router, h.FollowUps, auth)
	RegisterAssignmentRoutes(router, h.Assignments, auth)

	// 健康检查路由
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"components": h.Components,
		})
	})
}
