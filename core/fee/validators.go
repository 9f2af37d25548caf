package fee

import (
	"reflect"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/feeportal/core"
)

var (
	feeTypeTag  = "feetype"
	feeTypeText = "must be one of 'Monthly Recurring' or 'Annual One-Time'"

	discountTypeTag  = "discounttype"
	discountTypeText = "must be one of 'Monthly Total' or 'Head-wise'"

	calculationTag  = "calculation"
	calculationText = "must be one of 'Percentage' or 'Fixed'"

	lateFeeTypeTag  = "latefeetype"
	lateFeeTypeText = "must be one of 'Fixed' or 'Daily'"

	paymentMethodTag  = "paymentmethod"
	paymentMethodText = "must be one of 'Cash', 'Online' or 'Cheque'"
)

// InitValidators registers the fee validators. decimal.Decimal fields are validated as float64,
// so numeric tags such as `gt=0` work on amounts.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	_ = validate.RegisterValidation(feeTypeTag, oneOf(string(MonthlyRecurring), string(AnnualOneTime)))
	core.RegisterCustomTranslation(validate, translator, feeTypeTag, feeTypeText)

	_ = validate.RegisterValidation(discountTypeTag, oneOf(string(MonthlyTotal), string(HeadWise)))
	core.RegisterCustomTranslation(validate, translator, discountTypeTag, discountTypeText)

	_ = validate.RegisterValidation(calculationTag, oneOf(string(Percentage), string(Fixed)))
	core.RegisterCustomTranslation(validate, translator, calculationTag, calculationText)

	_ = validate.RegisterValidation(lateFeeTypeTag, oneOf(string(LateFeeFixed), string(LateFeeDaily)))
	core.RegisterCustomTranslation(validate, translator, lateFeeTypeTag, lateFeeTypeText)

	_ = validate.RegisterValidation(paymentMethodTag, oneOf(string(Cash), string(Online), string(Cheque)))
	core.RegisterCustomTranslation(validate, translator, paymentMethodTag, paymentMethodText)
}

func decimalValue(v reflect.Value) interface{} {
	if d, ok := v.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	}
}
