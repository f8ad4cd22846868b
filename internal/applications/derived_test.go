package applications_test

import (
	"testing"

	"github.com/JaimeStill/underwrite/internal/applications"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name      string
		financial string
		loan      string
		dti       *float64
		lti       *float64
		pti       *float64
	}{
		{
			name:      "example",
			financial: `{"net_monthly_income": 1000, "monthly_obligations": 200, "existing_loans_payment": 100}`,
			loan:      `{"loan_amount": 12000, "estimated_payment": 300}`,
			dti:       ptr(0.3),
			lti:       ptr(1.0),
			pti:       ptr(0.3),
		},
		{
			name:      "missing fields read as zero",
			financial: `{"net_monthly_income": 2500}`,
			loan:      `{}`,
			dti:       ptr(0.0),
			lti:       ptr(0.0),
			pti:       ptr(0.0),
		},
		{
			name:      "rounded to four places",
			financial: `{"net_monthly_income": 3000, "monthly_obligations": 1000}`,
			loan:      `{"loan_amount": 10000, "estimated_payment": 200}`,
			dti:       ptr(0.3333),
			lti:       ptr(0.2778),
			pti:       ptr(0.0667),
		},
		{
			name:      "zero income",
			financial: `{"net_monthly_income": 0, "monthly_obligations": 200}`,
			loan:      `{"loan_amount": 12000}`,
		},
		{
			name:      "negative income",
			financial: `{"net_monthly_income": -50}`,
			loan:      `{"loan_amount": 12000}`,
		},
		{
			name:      "empty documents",
			financial: ``,
			loan:      ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applications.Derive([]byte(tt.financial), []byte(tt.loan))
			assertRatio(t, "dti_ratio", got.DTIRatio, tt.dti)
			assertRatio(t, "loan_to_income", got.LoanToIncome, tt.lti)
			assertRatio(t, "payment_to_income", got.PaymentToIncome, tt.pti)
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}

func assertRatio(t *testing.T, name string, got, want *float64) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s = %v, want nil", name, *got)
	case want != nil && got == nil:
		t.Errorf("%s = nil, want %v", name, *want)
	case want != nil && *got != *want:
		t.Errorf("%s = %v, want %v", name, *got, *want)
	}
}
