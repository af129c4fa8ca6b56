package services

import (
	"errors"
	"fmt"
	"strings"

	"civicbridge-be/models"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "issue_category", func(fl validator.FieldLevel) bool {
		return models.IssueCategory(fl.Field().String()).IsValid()
	})
	mustRegister(v, "user_role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).IsValid()
	})
	v.RegisterStructValidation(validateGeoPoint, models.GeoPoint{})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// validateGeoPoint checks a GeoJSON point: type "Point", coordinates [lng, lat].
func validateGeoPoint(sl validator.StructLevel) {
	p := sl.Current().Interface().(models.GeoPoint)
	if p.Type != "Point" {
		sl.ReportError(p.Type, "Type", "Type", "geopoint", "")
	}
	if err := sl.Validator().Var(p.Longitude(), "longitude"); err != nil {
		sl.ReportError(p.Longitude(), "Coordinates", "Coordinates", "longitude", "")
	}
	if err := sl.Validator().Var(p.Latitude(), "latitude"); err != nil {
		sl.ReportError(p.Latitude(), "Coordinates", "Coordinates", "latitude", "")
	}
}

// validateInput runs the struct tags of in and turns the first failure into a ValidationError.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Msg: err.Error()}
	}
	return &ValidationError{Msg: fieldMessage(fieldErrs[0])}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return "Invalid email"
	case "issue_category":
		return "Invalid category"
	case "user_role":
		return "Invalid role"
	case "geopoint", "longitude", "latitude":
		return "Invalid location"
	}
	return "Invalid " + strings.ToLower(fe.Field())
}
