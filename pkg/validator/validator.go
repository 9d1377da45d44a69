// Package validator wraps go-playground/validator for payload structs.
//
// Field names in errors come from json tags, messages are translated to
// English or Chinese, and an "objectid" rule accepts non-zero ObjectIDs or
// 24 character hex strings.
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Supported languages.
const (
	LangEN = "en"
	LangZH = "zh"
)

// Validator validates structs and translates the failures.
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	trans    map[string]ut.Translator
	mu       sync.RWMutex
}

var (
	globalValidator *Validator
	once            sync.Once
)

// Global returns the process wide validator, creating it on first use.
func Global() *Validator {
	once.Do(func() {
		globalValidator = New()
	})
	return globalValidator
}

// New creates a Validator with EN/ZH translations and the custom rules.
func New() *Validator {
	v := &Validator{
		validate: validator.New(),
		trans:    make(map[string]ut.Translator),
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})

	enLocale := en.New()
	v.uni = ut.New(enLocale, enLocale, zh.New())

	enTrans, _ := v.uni.GetTranslator(LangEN)
	_ = en_translations.RegisterDefaultTranslations(v.validate, enTrans)
	v.trans[LangEN] = enTrans

	zhTrans, _ := v.uni.GetTranslator(LangZH)
	_ = zh_translations.RegisterDefaultTranslations(v.validate, zhTrans)
	v.trans[LangZH] = zhTrans

	_ = v.RegisterValidationWithTranslation("objectid", isObjectID, map[string]string{
		LangEN: "{0} must be a valid ObjectId",
		LangZH: "{0}必须是有效的 ObjectId",
	})

	return v
}

// isObjectID accepts non-zero ObjectIDs and valid hex strings. nil pointers
// are left to the required rule.
func isObjectID(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case primitive.ObjectID:
		return !v.IsZero()
	case string:
		return primitive.IsValidObjectID(v)
	}
	return false
}

// Validate checks s and returns a *ValidationErrors with English messages.
func (v *Validator) Validate(s interface{}) error {
	if errs := v.ValidateWithLang(s, LangEN); errs != nil {
		return errs
	}
	return nil
}

// ValidateWithLang checks s and returns messages in lang, or nil when s is valid.
func (v *Validator) ValidateWithLang(s interface{}, lang string) *ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return NewValidationError("unknown", "unknown", err.Error())
	}
	return v.translate(fieldErrs, v.GetTranslator(lang))
}

// Var checks a single value against tag.
func (v *Validator) Var(field interface{}, tag string) error {
	err := v.validate.Var(field, tag)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		return v.translate(fieldErrs, v.GetTranslator(LangEN))
	}
	return NewValidationError("value", tag, err.Error())
}

// GetTranslator returns the translator of lang, defaulting to English.
func (v *Validator) GetTranslator(lang string) ut.Translator {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if trans, ok := v.trans[lang]; ok {
		return trans
	}
	return v.trans[LangEN]
}

// RegisterValidationWithTranslation adds a rule together with its messages.
// Messages may reference the field name as {0}.
func (v *Validator) RegisterValidationWithTranslation(
	tag string,
	fn validator.Func,
	translations map[string]string,
) error {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		return err
	}

	for lang, message := range translations {
		message := message
		_ = v.validate.RegisterTranslation(tag, v.GetTranslator(lang),
			func(t ut.Translator) error {
				return t.Add(tag, message, true)
			},
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(tag, fe.Field())
				return msg
			},
		)
	}
	return nil
}

// Engine exposes the underlying validator, e.g. for gin's binding.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

func (v *Validator) translate(errs validator.ValidationErrors, trans ut.Translator) *ValidationErrors {
	result := &ValidationErrors{Errors: make([]FieldError, 0, len(errs))}
	for _, err := range errs {
		result.Errors = append(result.Errors, FieldError{
			Field:   err.Field(),
			Tag:     err.Tag(),
			Value:   err.Value(),
			Param:   err.Param(),
			Message: err.Translate(trans),
		})
	}
	return result
}

// Struct validates s with the global validator.
func Struct(s interface{}) error {
	return Global().Validate(s)
}
