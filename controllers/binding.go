package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/BerniceZTT/crm_followup/utils"
)

// tagErrors 枚举校验失败时返回对应的业务错误码
var tagErrors = map[string]*utils.ApiError{
	"actiontaken": utils.ErrInvalidAction,
	"casestatus":  utils.ErrInvalidStatus,
}

// bindingError 将gin绑定错误转换为API错误
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if apiErr, ok := tagErrors[verrs[0].Tag()]; ok {
			return apiErr
		}
	}
	return utils.CreateBadRequestError(utils.BindingErrorMessage(err))
}

// bindJSON 绑定请求体，失败时已写出错误响应
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		utils.HandleError(c, bindingError(err))
		return false
	}
	return true
}

// currentUser 当前登录用户，未登录时已写出401
func currentUser(c *gin.Context) (*utils.LoginUser, bool) {
	user, err := utils.GetUser(c)
	if err != nil {
		utils.HandleError(c, utils.CreateUnauthorizedError())
		return nil, false
	}
	return user, true
}
