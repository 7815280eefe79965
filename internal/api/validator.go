package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator はEcho用のカスタムバリデーター
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する。エラーのフィールド名は JSON タグ名を使う
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate はリクエストのバリデーションを実行する
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの検証に失敗しました").SetInternal(err)
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		d := fe.Field() + ": " + fe.Tag()
		if fe.Param() != "" {
			d += "=" + fe.Param()
		}
		details = append(details, d)
	}
	return echo.NewHTTPError(http.StatusBadRequest, "リクエストの検証に失敗しました").
		SetInternal(errors.New(strings.Join(details, ", ")))
}
