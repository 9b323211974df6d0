// Package validate wraps go-playground/validator with English messages and maps
// failures to project errors
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	perr "github.com/mickrosero/bert-categorizacion-actos-administrativos/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldLevel aliases validator.FieldLevel
type FieldLevel = validator.FieldLevel

// Service holds a validator and its translator
type Service struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *Service
)

// Get returns the validator singleton, initializing on first use
func Get() *Service {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// prefer json tag names in messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		registerShortGte(v, trans)
		registerNonBlank(v, trans)

		vSvc = &Service{Validator: v, Translator: trans}
	})
	return vSvc
}

// Struct validates s and returns an error of the given code carrying the first
// offending field and its translated message
func Struct(s any, code perr.ErrorCode) error {
	err := Get().Validator.Struct(s)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return perr.Wrap(inv, perr.ErrorCodeUnknown, "validator internal error")
	}
	field, msg := FieldAndMessage(err)
	return perr.WithField(perr.Newf(code, "%s", msg), field)
}

// FieldAndMessage returns the first field (namespace without the struct name) and translated message
func FieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field = fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		return field, fe.Translate(Get().Translator)
	}
	return "", err.Error()
}

// custom translations with short messages

func registerShortGte(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterTranslation("gte", trans,
		func(ut ut.Translator) error {
			return ut.Add("gte", "{0} must be at least {1}", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("gte", fe.Field(), fe.Param())
			return msg
		},
	)
}

func registerNonBlank(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterValidation("nonblank", func(fl FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterTranslation("nonblank", trans,
		func(ut ut.Translator) error {
			return ut.Add("nonblank", "{0} must not be blank", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("nonblank", fe.Field())
			return msg
		},
	)
}
