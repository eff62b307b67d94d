package announcement

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/erasmushub/erasmushub/core"
)

var (
	priorityTag  = "priority"
	priorityText = fmt.Sprintf("priority must be one of: %s", strings.Join(Priorities, ", "))
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(priorityTag, priorityValidation)
	core.RegisterCustomTranslation(validate, translator, priorityTag, priorityText)
}

func priorityValidation(fl validator.FieldLevel) bool {
	priority := fl.Field().String()
	for _, p := range Priorities {
		if p == priority {
			return true
		}
	}
	return false
}
