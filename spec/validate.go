package spec

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/utils"
)

// ValidationError reports every rule a Record broke
type ValidationError struct {
	Problems []string
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	return "invalid mock: " + strings.Join(ve.Problems, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})

	return validate
}

// Normalize upper-cases the method and trims surrounding whitespace from the method and the
// data source reference. The path is left byte-exact.
func (r Record) Normalize() Record {
	r.Method = utils.ToUpper(strings.TrimSpace(r.Method))
	r.CSVFile = strings.TrimSpace(r.CSVFile)

	return r
}

// Validate checks a normalized Record, returning a *ValidationError on failure
func (r Record) Validate() error {
	ve := &ValidationError{}

	if err := recordValidator().Struct(r); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return &ValidationError{Problems: []string{err.Error()}}
		}

		for _, fe := range validationErrors {
			ve.Problems = append(ve.Problems, describe(fe))
		}
	}

	// NaN and infinities pass gte=0 but can't be written to the snapshot
	if !finite(r.AvgDelay) {
		ve.Problems = append(ve.Problems, "AvgDelay must be a finite number")
	}
	if !finite(r.Deviation) {
		ve.Problems = append(ve.Problems, "Deviation must be a finite number")
	}

	if len(ve.Problems) == 0 {
		return nil
	}

	return ve
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
}
