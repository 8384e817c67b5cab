package notification

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/appel/core"
)

var (
	notifTypeTag  = "notiftype"
	notifTypeText = "{0} must be one of absence, tardiness or other"
)

// InitValidators registers the validators of this package.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(notifTypeTag, notifTypeValidation)
	core.RegisterCustomTranslation(validate, translator, notifTypeTag, notifTypeText)
}

func notifTypeValidation(fl validator.FieldLevel) bool {
	return Type(fl.Field().String()).Valid()
}
