package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BerniceZTT/crm_followup/models"
	"github.com/BerniceZTT/crm_followup/repository"
	"github.com/BerniceZTT/crm_followup/utils"
)

// 需要记录的HTTP方法
var loggedMethods = map[string]bool{
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
	http.MethodPatch:  true,
}

// 不需要记录的路径
var excludedPaths = map[string]bool{
	"/api/health": true,
}

// OperationLoggerMiddleware 写操作日志记录中间件，保存失败不影响请求
func OperationLoggerMiddleware(store repository.AuditStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !shouldLogOperation(c) {
			c.Next()
			return
		}

		startTime := time.Now()

		blw := &bodyLogWriter{
			body:           bytes.NewBufferString(""),
			ResponseWriter: c.Writer,
		}
		c.Writer = blw

		var requestBody interface{}
		if c.Request.Body != nil {
			raw, err := io.ReadAll(c.Request.Body)
			if err != nil {
				utils.Logger.Error().Err(err).Msg("读取请求体失败")
			} else {
				c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
				if len(raw) > 0 {
					if err := json.Unmarshal(raw, &requestBody); err != nil {
						requestBody = truncate(string(raw))
					}
				}
			}
		}

		c.Next()

		operationLog := models.OperationLog{
			RequestID:     utils.RequestIDFrom(c.Request.Context()),
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
			Route:         c.FullPath(),
			ResourceID:    c.Param("id"),
			RequestBody:   sanitizeData(requestBody),
			ResponseCode:  responseCode(blw.body.Bytes()),
			StatusCode:    c.Writer.Status(),
			Success:       c.Writer.Status() < http.StatusBadRequest,
			OperationTime: startTime,
			ResponseTime:  time.Since(startTime).Milliseconds(),
			IPAddress:     c.ClientIP(),
			UserAgent:     c.Request.UserAgent(),
		}
		operationLog.OperatorID, operationLog.OperatorName, operationLog.OperatorRole = extractUserInfo(c)
		if len(c.Errors) > 0 {
			operationLog.ErrorMessage = c.Errors.String()
		}

		// 请求可能已被取消，保存日志使用独立的context
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.SaveOperationLog(ctx, &operationLog); err != nil {
			utils.Logger.Error().Err(err).Str("path", operationLog.Path).Msg("保存操作日志失败")
		}
	}
}

// shouldLogOperation 检查是否需要记录此操作
func shouldLogOperation(c *gin.Context) bool {
	if excludedPaths[c.Request.URL.Path] {
		return false
	}
	return loggedMethods[c.Request.Method]
}

// extractUserInfo 从上下文中提取用户信息
func extractUserInfo(c *gin.Context) (string, string, string) {
	user, err := utils.GetUser(c)
	if err != nil {
		return "anonymous", "匿名用户", "UNKNOWN"
	}
	return user.ID, user.Username, user.Role
}

// responseCode 取响应体中的业务错误码
func responseCode(body []byte) string {
	var payload struct {
		Code string `json:"code"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return payload.Code
}

// sanitizeData 清理数据中的敏感信息
func sanitizeData(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		sanitized := make(map[string]interface{}, len(v))
		for k, val := range v {
			switch strings.ToLower(k) {
			case "password", "token", "authorization", "secret", "key":
				sanitized[k] = "******"
			default:
				sanitized[k] = sanitizeData(val)
			}
		}
		return sanitized
	case []interface{}:
		sanitized := make([]interface{}, len(v))
		for i, val := range v {
			sanitized[i] = sanitizeData(val)
		}
		return sanitized
	default:
		return data
	}
}
