// Package validate настраивает go-playground/validator для входных данных API
// и переводит его ошибки в models.ValidationError с разбивкой по полям.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/marketing-simulator/internal/models"
)

// Российский номер: +7 или 8, затем 10 цифр с необязательными пробелами, дефисами и скобками.
var phoneRe = regexp.MustCompile(`^(\+7|8)[\s\-]?\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{2}[\s\-]?\d{2}$`)

// BcryptMaxBytes предел длины пароля в байтах, дальше bcrypt пароль не принимает.
const BcryptMaxBytes = 72

// Validator обёртка над validator.Validate.
type Validator struct {
	v *validator.Validate
}

// New создаёт валидатор с тегами phone и bcryptmax и именами полей из json-тегов.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// регистрация с корректным тегом и функцией не возвращает ошибку
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phoneRe.MatchString(fl.Field().String())
	})
	// max считает символы, а bcrypt ограничен байтами: кириллица занимает по два
	_ = v.RegisterValidation("bcryptmax", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= BcryptMaxBytes
	})
	return &Validator{v: v}
}

// Struct проверяет структуру. Возвращает *models.ValidationError или nil.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError(models.FieldError{Field: "body", Message: err.Error()})
	}
	fields := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, models.FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return models.NewValidationError(fields...)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field %s is a required field", fe.Field())
	case "email":
		return fmt.Sprintf("field %s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("field %s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("field %s must be at most %s characters long", fe.Field(), fe.Param())
	case "bcryptmax":
		return fmt.Sprintf("field %s must be at most %d bytes long", fe.Field(), BcryptMaxBytes)
	case "phone":
		return fmt.Sprintf("field %s must be a valid phone number", fe.Field())
	case "eqfield":
		return fmt.Sprintf("field %s must match %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("field %s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("field %s is not valid", fe.Field())
	}
}
