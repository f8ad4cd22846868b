package applications

import (
	"math"

	"github.com/tidwall/gjson"
)

// Derived holds risk ratios computed from financial data and the loan request.
// All three are nil when net monthly income is not positive.
type Derived struct {
	DTIRatio        *float64 `json:"dti_ratio"`
	LoanToIncome    *float64 `json:"loan_to_income"`
	PaymentToIncome *float64 `json:"payment_to_income"`
}

// Derive computes risk ratios from raw financial_data and loan_request JSON.
// Missing or non-numeric fields read as zero. Results are rounded to four decimal places.
func Derive(financial, loan []byte) Derived {
	income := gjson.GetBytes(financial, "net_monthly_income").Float()
	if income <= 0 {
		return Derived{}
	}

	obligations := gjson.GetBytes(financial, "monthly_obligations").Float()
	existing := gjson.GetBytes(financial, "existing_loans_payment").Float()
	amount := gjson.GetBytes(loan, "loan_amount").Float()
	payment := gjson.GetBytes(loan, "estimated_payment").Float()

	return Derived{
		DTIRatio:        ratio(obligations+existing, income),
		LoanToIncome:    ratio(amount, income*12),
		PaymentToIncome: ratio(payment, income),
	}
}

func ratio(num, den float64) *float64 {
	v := round4(num / den)
	return &v
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
