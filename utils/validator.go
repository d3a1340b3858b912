package utils

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/BerniceZTT/crm_followup/models"
)

var (
	registerOnce sync.Once
	registerErr  error

	// validatorEngine gin当前使用的校验引擎
	validatorEngine = func() interface{} { return binding.Validator.Engine() }
)

// RegisterValidators 为gin绑定注册业务枚举校验标签：
// actiontaken、priority、entitytype、casestatus。
// 只注册一次，之后的调用返回第一次的结果。
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := validatorEngine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("gin绑定校验器类型不支持")
			return
		}
		registerErr = registerEnumValidations(v)
	})
	return registerErr
}

func registerEnumValidations(v *validator.Validate) error {
	validations := map[string]validator.Func{
		"actiontaken": func(fl validator.FieldLevel) bool {
			return models.ActionTaken(fl.Field().String()).IsValid()
		},
		"priority": func(fl validator.FieldLevel) bool {
			return models.Priority(fl.Field().String()).IsValid()
		},
		"entitytype": func(fl validator.FieldLevel) bool {
			return models.EntityType(fl.Field().String()).IsValid()
		},
		"casestatus": func(fl validator.FieldLevel) bool {
			return models.CaseStatus(fl.Field().String()).IsValid()
		},
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("注册校验标签 %s 失败: %w", tag, err)
		}
	}
	return nil
}

// BindingErrorMessage 将绑定错误转换为可读信息
func BindingErrorMessage(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("缺少必填字段: %s", fe.Field())
		case "actiontaken":
			return "无效的联系方式: " + fmt.Sprint(fe.Value())
		case "priority":
			return "无效的优先级: " + fmt.Sprint(fe.Value())
		case "entitytype":
			return "无效的分配对象类型: " + fmt.Sprint(fe.Value())
		case "casestatus":
			return "无效的跟进状态: " + fmt.Sprint(fe.Value())
		default:
			return fmt.Sprintf("字段 %s 校验失败: %s", fe.Field(), fe.Tag())
		}
	}
	return "请求参数格式错误: " + err.Error()
}
