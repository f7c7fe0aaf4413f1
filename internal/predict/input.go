package predict

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bher20/billoptimizer/internal/tariff"
)

// Request is the household description posted by clients. Fields are
// pointers so that a missing field can be told apart from a zero value.
type Request struct {
	HouseholdSize *int     `json:"household_size" validate:"required,min=1,max=15"`
	NumAppliances *int     `json:"num_appliances" validate:"required,min=1,max=50"`
	ACUnits       *int     `json:"ac_units" validate:"required,min=0,max=10"`
	FridgeCount   *int     `json:"fridge_count" validate:"required,min=0,max=5"`
	FanCount      *int     `json:"fan_count" validate:"required,min=0,max=20"`
	UsageHours    *float64 `json:"usage_hours" validate:"required,min=1,max=24"`
	PreviousUnits *float64 `json:"previous_units" validate:"required,min=0,max=5000"`
	Region        *string  `json:"region" validate:"required,min=1"`
	ConsumerType  *string  `json:"consumer_type" validate:"required,min=1"`
}

// Input is a validated Request.
type Input struct {
	HouseholdSize int             `json:"household_size"`
	NumAppliances int             `json:"num_appliances"`
	ACUnits       int             `json:"ac_units"`
	FridgeCount   int             `json:"fridge_count"`
	FanCount      int             `json:"fan_count"`
	UsageHours    float64         `json:"usage_hours"`
	PreviousUnits float64         `json:"previous_units"`
	Region        string          `json:"region"`
	ConsumerType  tariff.Category `json:"consumer_type"`
}

// ValidationError lists every problem found in a Request.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}

// Unwrap lets callers treat validation failures as invalid input.
func (e *ValidationError) Unwrap() error { return tariff.ErrInvalidInput }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks r and returns the resolved Input.
func (r Request) Validate() (Input, error) {
	if err := validate.Struct(r); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return Input{}, fmt.Errorf("validate request: %w", err)
		}
		details := make([]string, 0, len(ves))
		for _, fe := range ves {
			details = append(details, describe(fe))
		}
		return Input{}, &ValidationError{Details: details}
	}

	c, err := tariff.ParseCategory(*r.ConsumerType)
	if err != nil {
		return Input{}, err
	}
	return Input{
		HouseholdSize: *r.HouseholdSize,
		NumAppliances: *r.NumAppliances,
		ACUnits:       *r.ACUnits,
		FridgeCount:   *r.FridgeCount,
		FanCount:      *r.FanCount,
		UsageHours:    *r.UsageHours,
		PreviousUnits: *r.PreviousUnits,
		Region:        *r.Region,
		ConsumerType:  c,
	}, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing required field: %s", fe.Field())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must not be empty", fe.Field())
		}
		return fmt.Sprintf("%s should be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s should be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
