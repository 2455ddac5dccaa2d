package validator

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	global        *validator.Validate
	priceCodeExpr = regexp.MustCompile(`^(regular|special)(_early|_board)?$`)
)

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid request")

const (
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrFieldExceedsMaxVal = "Field exceeds maximum value"
	ErrFieldBelowMinVal   = "Field is below minimum value"
	ErrInvalidEmail       = "Invalid e-mail address"
	ErrInvalidChoice      = "Value is not one of the allowed choices"
	ErrInvalidPriceCode   = "Unknown price code"
	ErrUnknownValidation  = "Unknown validation error"
)

func init() {
	SetValidator(New())
}

// New returns a validator with the custom tags registered.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("pricecode", validatePriceCode)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func validatePriceCode(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || priceCodeExpr.MatchString(s)
}

// Validate checks a request struct and reports the first failing field.
func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required", "required_without":
		msg = ErrFieldRequired
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "lt", "lte":
		msg = ErrFieldExceedsMaxVal
	case "gt", "gte":
		msg = ErrFieldBelowMinVal
	case "email":
		msg = ErrInvalidEmail
	case "oneof":
		msg = ErrInvalidChoice
	case "pricecode":
		msg = ErrInvalidPriceCode
	default:
		msg = ErrUnknownValidation
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalid, msg, ve.Namespace())
}

// Echo adapts the package validator to echo.Validator so handlers can call
// c.Validate.
type Echo struct{}

func (Echo) Validate(i interface{}) error {
	return Validate(context.Background(), i)
}
