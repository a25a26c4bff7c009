package scoring

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const weightTotal = 100

// ReasonWeightSum is the rejection reason for weights that do not add up to 100.
const ReasonWeightSum = "weights must sum to 100"

// Weights are integer percentages for the skill similarity and keyword factors.
type Weights struct {
	Skill         int `json:"skill" mapstructure:"skill" validate:"min=0,max=100"`
	Experience    int `json:"experience" mapstructure:"experience" validate:"min=0,max=100"`
	Internship    int `json:"internship" mapstructure:"internship" validate:"min=0,max=100"`
	Certification int `json:"certification" mapstructure:"certification" validate:"min=0,max=100"`
}

// DefaultWeights favours semantic skill similarity.
func DefaultWeights() Weights {
	return Weights{Skill: 70, Experience: 20, Internship: 5, Certification: 5}
}

func (w Weights) Sum() int {
	return w.Skill + w.Experience + w.Internship + w.Certification
}

// Validate checks every weight is within 0..100 and that they sum to exactly 100.
func (w Weights) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fromValidator(err)
	}
	if w.Sum() != weightTotal {
		return &ValidationError{Reason: ReasonWeightSum}
	}
	return nil
}

// WeightsInput is the wire form of a weight update. Pointer fields let a missing
// field be told apart from an explicit zero.
type WeightsInput struct {
	Skill         *int `json:"skill" validate:"required,min=0,max=100"`
	Experience    *int `json:"experience" validate:"required,min=0,max=100"`
	Internship    *int `json:"internship" validate:"required,min=0,max=100"`
	Certification *int `json:"certification" validate:"required,min=0,max=100"`
}

// Weights validates the input and returns the complete configuration.
func (in WeightsInput) Weights() (Weights, error) {
	if err := validate.Struct(in); err != nil {
		return Weights{}, fromValidator(err)
	}

	w := Weights{
		Skill:         *in.Skill,
		Experience:    *in.Experience,
		Internship:    *in.Internship,
		Certification: *in.Certification,
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fromValidator(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}

	first := fieldErrs[0]
	reason := fmt.Sprintf("must be between 0 and %d", weightTotal)
	if first.Tag() == "required" {
		reason = "is required"
	}
	return &ValidationError{Field: first.Field(), Reason: reason}
}
