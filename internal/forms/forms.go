// Package forms binds and validates the HTML forms submitted to the site.
package forms

import (
	"errors"
	"reflect"
	"strings"

	"cafewifi/internal/models"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a form field name to a human readable message.
type FieldErrors map[string]string

// Validator validates form structs and reports errors by form field name.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator that names fields after their form tag.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates s and returns the failing fields. A nil result means s is valid.
func (v *Validator) Struct(s interface{}) FieldErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return FieldErrors{"form": err.Error()}
	}

	fieldErrors := make(FieldErrors, len(validationErrors))
	for _, e := range validationErrors {
		if _, seen := fieldErrors[e.Field()]; seen {
			continue
		}
		fieldErrors[e.Field()] = message(e)
	}
	return fieldErrors
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "http_url", "url":
		return "Invalid URL."
	case "oneof":
		return "Not a valid choice."
	default:
		return "Invalid value."
	}
}

// CafeForm is the cafe submission form.
type CafeForm struct {
	Name     string `form:"cafe" validate:"required"`
	Location string `form:"location" validate:"required,http_url"`
	Open     string `form:"open" validate:"required"`
	Close    string `form:"close" validate:"required"`
	Coffee   string `form:"coffee" validate:"required,oneof=1 2 3 4 5"`
	Wifi     string `form:"wifi" validate:"required,oneof=0 1 2 3 4 5"`
	Power    string `form:"power" validate:"required,oneof=0 1 2 3 4 5"`
}

// Validate trims the submitted values and checks them.
func (f *CafeForm) Validate(v *Validator) FieldErrors {
	f.Name = strings.TrimSpace(f.Name)
	f.Location = strings.TrimSpace(f.Location)
	f.Open = strings.TrimSpace(f.Open)
	f.Close = strings.TrimSpace(f.Close)
	f.Coffee = strings.TrimSpace(f.Coffee)
	f.Wifi = strings.TrimSpace(f.Wifi)
	f.Power = strings.TrimSpace(f.Power)
	return v.Struct(f)
}

// Cafe converts a validated form into a cafe record.
func (f *CafeForm) Cafe() (*models.Cafe, error) {
	coffee, err := models.CoffeeScale.Parse(f.Coffee)
	if err != nil {
		return nil, err
	}
	wifi, err := models.WifiScale.Parse(f.Wifi)
	if err != nil {
		return nil, err
	}
	power, err := models.PowerScale.Parse(f.Power)
	if err != nil {
		return nil, err
	}
	return &models.Cafe{
		Name:         f.Name,
		LocationURL:  f.Location,
		OpenTime:     f.Open,
		CloseTime:    f.Close,
		CoffeeRating: coffee,
		WifiRating:   wifi,
		PowerRating:  power,
	}, nil
}

// LoginForm is the login form. The email format is not checked here.
type LoginForm struct {
	Email    string `form:"email" json:"email" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// Validate trims the email and checks both fields.
func (f *LoginForm) Validate(v *Validator) FieldErrors {
	f.Email = strings.TrimSpace(f.Email)
	return v.Struct(f)
}

// RegisterForm is the account registration form.
type RegisterForm struct {
	Email    string `form:"email" validate:"required"`
	Password string `form:"password" validate:"required"`
	Name     string `form:"user_name" validate:"required"`
}

// Validate trims the email and name and checks all fields.
func (f *RegisterForm) Validate(v *Validator) FieldErrors {
	f.Email = strings.TrimSpace(f.Email)
	f.Name = strings.TrimSpace(f.Name)
	return v.Struct(f)
}
