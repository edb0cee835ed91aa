package handlers

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"mindmail/internal/models"
	"mindmail/internal/validation"
)

const (
	tagPersonName = "personname"
	tagMood       = "mood"
	tagRecurrence = "recurrence"
	tagPreset     = "preset"
)

// NewValidator returns a validator that reports fields by their JSON name and
// knows the app's own tags.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, tagPersonName, func(fl validator.FieldLevel) bool {
		_, err := validation.ValidateName(fl.Field().String())
		return err == nil
	})
	mustRegister(v, tagMood, func(fl validator.FieldLevel) bool {
		_, err := models.ParseMood(fl.Field().String())
		return err == nil
	})
	mustRegister(v, tagRecurrence, func(fl validator.FieldLevel) bool {
		_, err := models.ParseRecurrence(fl.Field().String())
		return err == nil
	})
	mustRegister(v, tagPreset, func(fl validator.FieldLevel) bool {
		_, err := models.ParseTimePreset(fl.Field().String())
		return err == nil
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

func personNameMessage(value any) string {
	s, _ := value.(string)
	if _, err := validation.ValidateName(s); err != nil {
		return err.Error()
	}
	return "Name contains invalid characters"
}
