package applications

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const intakeSchemaJSON = `{
	"type": "object",
	"required": ["applicant_data", "financial_data", "loan_request"],
	"properties": {
		"applicant_data": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string", "minLength": 1, "pattern": "\\S"}
			}
		},
		"financial_data": {
			"type": "object",
			"required": ["net_monthly_income"],
			"properties": {
				"net_monthly_income": {"type": "number", "exclusiveMinimum": 0},
				"monthly_obligations": {"type": "number", "minimum": 0},
				"existing_loans_payment": {"type": "number", "minimum": 0}
			}
		},
		"loan_request": {
			"type": "object",
			"required": ["loan_amount"],
			"properties": {
				"loan_amount": {"type": "number", "exclusiveMinimum": 0},
				"estimated_payment": {"type": "number", "minimum": 0}
			}
		},
		"credit_bureau_data": {"type": ["object", "null"]}
	}
}`

var intakeSchema = mustCompileIntake()

func mustCompileIntake() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("intake.json", strings.NewReader(intakeSchemaJSON)); err != nil {
		panic(fmt.Sprintf("add intake schema: %v", err))
	}
	return compiler.MustCompile("intake.json")
}

// intakePayload is the document validated against the intake schema.
type intakePayload struct {
	ApplicantData    json.RawMessage `json:"applicant_data"`
	FinancialData    json.RawMessage `json:"financial_data"`
	LoanRequest      json.RawMessage `json:"loan_request"`
	CreditBureauData json.RawMessage `json:"credit_bureau_data,omitempty"`
}

// ValidateIntake checks the data blobs of an application against the intake schema.
// Failures wrap ErrValidation.
func ValidateIntake(applicant, financial, loan, bureau json.RawMessage) error {
	doc, err := json.Marshal(intakePayload{
		ApplicantData:    orNull(applicant),
		FinancialData:    orNull(financial),
		LoanRequest:      orNull(loan),
		CreditBureauData: bureau,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := intakeSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, describe(err))
	}
	return nil
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// describe flattens a schema validation error into its leaf messages.
func describe(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}

	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)

	return strings.Join(msgs, "; ")
}
