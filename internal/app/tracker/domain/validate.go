package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateCardSpec 檢查新增卡片的輸入
func ValidateCardSpec(spec CardSpec) error {
	return validateStruct(spec)
}

// ValidateTransactionSpec 檢查新增交易的輸入
func ValidateTransactionSpec(spec TransactionSpec) error {
	return validateStruct(spec)
}

// validateStruct 將 validator 的錯誤轉為 ErrInvalidInput
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "gt":
		return field + " must be positive"
	case "lte":
		return fmt.Sprintf("%s must not exceed %s", field, MaxMoney)
	case "min", "max":
		return fmt.Sprintf("%s must be between 1 and 31", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
