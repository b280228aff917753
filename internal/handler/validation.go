package handler

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/utils"
)

func registerValidations(validate *validator.Validate, trans ut.Translator) error {
	if err := validate.RegisterValidation("clock", utils.ValidateClock); err != nil {
		return err
	}

	return validate.RegisterTranslation("clock", trans,
		func(ut ut.Translator) error {
			return ut.Add("clock", "{0}必须是 HH:MM 格式的时间", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("clock", fe.Field())
			return t
		},
	)
}
