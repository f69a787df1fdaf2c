// Package validator registers custom validation tags on Gin's binding engine.
package validator

import (
	"regexp"

	money "github.com/Rhymond/go-money"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	// Month keys are accepted canonical ("YYYY-MM") or compact ("YYYYMM").
	monthKeyRegex = regexp.MustCompile(`^\d{4}-?(0[1-9]|1[0-2])$`)
	rateDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Register installs all custom tags. Call once before binding any request.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("hex_color", validateHexColor)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("category_type", validateCategoryType)
		_ = v.RegisterValidation("account_type", validateAccountType)
		_ = v.RegisterValidation("month_key", validateMonthKey)
		_ = v.RegisterValidation("rate_date", validateRateDate)
	}
}

// validateISO4217 accepts any currency code known to the go-money registry,
// the same source MoneyCodec uses for decimal places.
func validateISO4217(fl validator.FieldLevel) bool {
	return money.GetCurrency(fl.Field().String()) != nil
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

// validateTransactionType covers the user-creatable types only; transfer legs
// are created through the transfer endpoint.
func validateTransactionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense":
		return true
	}
	return false
}

func validateCategoryType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense":
		return true
	}
	return false
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "cash", "bank", "card", "investment", "savings":
		return true
	}
	return false
}

func validateMonthKey(fl validator.FieldLevel) bool {
	return monthKeyRegex.MatchString(fl.Field().String())
}

func validateRateDate(fl validator.FieldLevel) bool {
	return rateDateRegex.MatchString(fl.Field().String())
}
