package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/hitoshi/resumekit/internal/model"
)

// requestValidator はリクエストボディの構造体タグ検証と英語メッセージへの翻訳を行う。
type requestValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// newRequestValidator はrequestValidatorを生成する。
// エラーメッセージのフィールド名にはJSONタグの名前を使う。
func newRequestValidator() *requestValidator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}

	return &requestValidator{validate: validate, trans: trans}
}

// Struct は構造体を検証し、違反があれば項目ごとのメッセージを含むAPIErrorを返す。
func (v *requestValidator) Struct(s any) *model.APIError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return model.NewValidationError(nil)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fe.Translate(v.trans))
	}
	return model.NewValidationError(problems)
}
