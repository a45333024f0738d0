package utils

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	isbn10Regex   = regexp.MustCompile(`^\d{9}[\dXx]$`)
	isbn13Regex   = regexp.MustCompile(`^\d{13}$`)

	// 自定义验证错误缓存
	validationErrorsCache sync.Map
	registerOnce          sync.Once
)

// RegisterValidations 向gin的绑定引擎注册自定义验证规则
func RegisterValidations() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		if err = v.RegisterValidation("username", validateUsername); err != nil {
			return
		}
		err = v.RegisterValidation("isbn", validateISBN)
	})
	return err
}

// ValidationError 验证错误结构
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("Validation failed: %v", ve.Errors)
}

// formatValidationErrors 格式化验证错误信息
func formatValidationErrors(errs validator.ValidationErrors) *ValidationError {
	errorMap := make(map[string]string, len(errs))

	for _, err := range errs {
		field := err.Field()
		tag := err.Tag()

		cacheKey := field + "_" + tag + "_" + err.Param()
		if msg, ok := validationErrorsCache.Load(cacheKey); ok {
			errorMap[field] = msg.(string)
			continue
		}

		msg := getErrorMessage(field, tag, err.Param())
		validationErrorsCache.Store(cacheKey, msg)
		errorMap[field] = msg
	}

	return &ValidationError{Errors: errorMap}
}

// getErrorMessage 获取错误消息
func getErrorMessage(field, tag, param string) string {
	errorMessages := map[string]string{
		"required": "%s不能为空",
		"email":    "%s格式不正确",
		"min":      "%s长度不能小于%s",
		"max":      "%s长度不能大于%s",
		"gte":      "%s必须大于或等于%s",
		"lte":      "%s必须小于或等于%s",
		"oneof":    "%s必须是以下值之一: %s",
		"username": "%s只能包含字母、数字和下划线，且以字母开头",
		"isbn":     "%s必须是10位或13位ISBN",
	}

	fieldNames := map[string]string{
		"Username":        "用户名",
		"Email":           "邮箱",
		"Password":        "密码",
		"ISBN":            "ISBN",
		"Title":           "书名",
		"Author":          "作者",
		"Price":           "价格",
		"Quantity":        "数量",
		"Rating":          "评分",
		"ShippingAddress": "收货地址",
		"PaymentToken":    "支付凭证",
	}

	fieldName := fieldNames[field]
	if fieldName == "" {
		fieldName = field
	}

	template, exists := errorMessages[tag]
	if !exists {
		return fmt.Sprintf("%s验证失败", fieldName)
	}
	if !strings.Contains(template[2:], "%s") {
		return fmt.Sprintf(template, fieldName)
	}
	return fmt.Sprintf(template, fieldName, param)
}

// validateUsername 用户名验证
func validateUsername(fl validator.FieldLevel) bool {
	username := fl.Field().String()
	if len(username) < 3 || len(username) > 50 {
		return false
	}
	return usernameRegex.MatchString(username)
}

// validateISBN ISBN验证，允许连字符和空格
func validateISBN(fl validator.FieldLevel) bool {
	return IsISBN(fl.Field().String())
}

// IsISBN 是否为ISBN-10或ISBN-13（忽略连字符和空格）
func IsISBN(s string) bool {
	isbn := strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s))
	return isbn10Regex.MatchString(isbn) || isbn13Regex.MatchString(isbn)
}
