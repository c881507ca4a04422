package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		role := fl.Field().String()
		for _, r := range []string{"admin", "staff", "agent", "customer"} {
			if role == r {
				return true
			}
		}
		return false
	})

	validate.RegisterValidation("txtype", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		for _, v := range []string{"deposit", "withdrawal", "payment", "commission", "refund", "transfer"} {
			if t == v {
				return true
			}
		}
		return false
	})

	validate.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		m := fl.Field().String()
		for _, v := range []string{"bank_transfer", "cash", "e_wallet", "qr_code", "credit_card", ""} {
			if m == v {
				return true
			}
		}
		return false
	})

	validate.RegisterValidation("approval_type", func(fl validator.FieldLevel) bool {
		t := fl.Field().String()
		for _, v := range []string{"agent_registration", "customer_registration", "deposit", "withdrawal", "transaction", "commission", "other"} {
			if t == v {
				return true
			}
		}
		return false
	})

	validate.RegisterValidation("decision", func(fl validator.FieldLevel) bool {
		d := fl.Field().String()
		return d == "approve" || d == "reject"
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "role":
			errors[field] = "Invalid role. Must be: admin, staff, agent, or customer"
		case "txtype":
			errors[field] = "Invalid transaction type"
		case "payment_method":
			errors[field] = "Invalid payment method"
		case "approval_type":
			errors[field] = "Invalid approval type"
		case "decision":
			errors[field] = "Decision must be approve or reject"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
