package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ApiError 自定义API错误
type ApiError struct {
	StatusCode int
	Message    string
	ErrorCode  string
}

// Error 实现error接口
func (e *ApiError) Error() string {
	return e.Message
}

// NewApiError 创建API错误
func NewApiError(message string, statusCode int, errorCode string) *ApiError {
	return &ApiError{
		StatusCode: statusCode,
		Message:    message,
		ErrorCode:  errorCode,
	}
}

// 本地校验错误，全部在任何写操作发出之前返回
var (
	ErrEmptyResult        = NewApiError("跟进结果不能为空", http.StatusBadRequest, "EMPTY_RESULT")
	ErrEmptyComment       = NewApiError("评论内容不能为空", http.StatusBadRequest, "EMPTY_COMMENT")
	ErrInvalidAction      = NewApiError("无效的联系方式", http.StatusBadRequest, "INVALID_ACTION")
	ErrInvalidStatus      = NewApiError("无效的跟进状态", http.StatusBadRequest, "INVALID_STATUS")
	ErrInvalidTransition  = NewApiError("跟进记录已结束，不能再变更状态", http.StatusConflict, "INVALID_TRANSITION")
	ErrEmptyTargets       = NewApiError("分配对象不能为空", http.StatusBadRequest, "EMPTY_TARGETS")
	ErrMixedEntityTypes   = NewApiError("不能在同一批次中同时分配线索和用户", http.StatusBadRequest, "MIXED_ENTITY_TYPES")
	ErrUnknownEmployee    = NewApiError("指定的员工不存在", http.StatusNotFound, "UNKNOWN_EMPLOYEE")
	ErrEmployeeAtCapacity = NewApiError("该员工已满载，无法继续分配", http.StatusConflict, "EMPLOYEE_AT_CAPACITY")
)

// CreateNotFoundError 创建资源不存在错误
func CreateNotFoundError(resource string) *ApiError {
	return NewApiError(resource+"不存在", http.StatusNotFound, "RESOURCE_NOT_FOUND")
}

// CreateUnauthorizedError 创建未授权错误
func CreateUnauthorizedError() *ApiError {
	return NewApiError("未授权访问", http.StatusUnauthorized, "UNAUTHORIZED")
}

// CreateBadRequestError 创建错误请求错误
func CreateBadRequestError(message string) *ApiError {
	return NewApiError(message, http.StatusBadRequest, "BAD_REQUEST")
}

// CreateUpstreamError 远端明确拒绝或请求未发出，记录未被修改
func CreateUpstreamError() *ApiError {
	return NewApiError("CRM服务请求失败，记录未被修改", http.StatusBadGateway, "UPSTREAM_FAILED")
}

// CreateUncertainOperationError 创建操作结果不确定错误
func CreateUncertainOperationError() *ApiError {
	return NewApiError(
		"操作状态不确定，请刷新页面查看最新状态",
		http.StatusInternalServerError,
		"UNCERTAIN_OPERATION",
	)
}

// UpstreamFailure 由同步层实现，用于区分“未修改”与“可能已修改”
type UpstreamFailure interface {
	error
	Uncertain() bool
	UpstreamStatus() int
}

// ToApiError 将任意错误转换为API错误
func ToApiError(err error) *ApiError {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var upstream UpstreamFailure
	if errors.As(err, &upstream) {
		switch {
		case upstream.Uncertain():
			return CreateUncertainOperationError()
		case upstream.UpstreamStatus() == http.StatusNotFound:
			return CreateNotFoundError("跟进记录")
		case upstream.UpstreamStatus() == http.StatusUnauthorized:
			return CreateUnauthorizedError()
		case upstream.UpstreamStatus() == http.StatusConflict:
			// 并发请求已先一步结束了该记录
			return ErrInvalidTransition
		default:
			return CreateUpstreamError()
		}
	}

	return NewApiError(err.Error(), http.StatusInternalServerError, "INTERNAL_ERROR")
}

// HandleError 处理错误并返回适当的响应
func HandleError(c *gin.Context, err error) {
	if c == nil || err == nil {
		return
	}

	apiErr := ToApiError(err)

	LogError(err, map[string]interface{}{
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
		"code":   apiErr.ErrorCode,
	}, "API错误: "+apiErr.Message)

	response := gin.H{"success": false, "error": apiErr.Message}
	if apiErr.ErrorCode != "" {
		response["code"] = apiErr.ErrorCode
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, response)
}
