package binder

import (
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// 10^10, the exclusive upper bound implied by "at most 10 integer digits".
var maxPrice = decimal.New(1, 10)

// decimalAsString lets validator treat decimal.Decimal fields as strings so
// that tags like required behave sensibly on them.
func decimalAsString(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

// priceValidator ensures the value is a positive decimal with at most 10
// integer digits and at most 2 fraction digits.
func priceValidator(fl validator.FieldLevel) bool {
	value, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return false
	}
	return d.IsPositive() &&
		d.Shift(2).IsInteger() &&
		d.LessThan(maxPrice)
}
