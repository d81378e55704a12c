package receipts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/receiptbox/constants"
	"github.com/joseph-ayodele/receiptbox/internal/common"
	"github.com/joseph-ayodele/receiptbox/internal/entity"
)

// draftSchema bounds what a reviewer may submit for persistence.
var draftSchema = map[string]any{
	"type":     "object",
	"required": []string{"image_url"},
	"properties": map[string]any{
		"image_url":      map[string]any{"type": "string", "minLength": 1, "maxLength": 2048},
		"vendor":         map[string]any{"type": "string", "maxLength": 255},
		"amount":         map[string]any{"type": "number", "minimum": 0},
		"tax_amount":     map[string]any{"type": "number", "minimum": 0},
		"date":           map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"category":       map[string]any{"type": "string", "maxLength": 64},
		"payment_method": map[string]any{"type": "string", "maxLength": 64},
		"notes":          map[string]any{"type": "string", "maxLength": 2000},
		"raw_ocr_data":   map[string]any{"type": "string"},
	},
}

var compiledDraftSchema = mustCompile(draftSchema)

func mustCompile(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("receipt_draft.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add schema: %v", err))
	}
	return compiler.MustCompile("receipt_draft.json")
}

// validateDraft checks the payload shape, then canonicalizes the category in place.
func validateDraft(d *entity.ReceiptDraft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal draft: %w", err)
	}
	if err := compiledDraftSchema.Validate(v); err != nil {
		return common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("receipt does not match schema: %v", err), common.ErrValidation)
	}
	cat, err := canonicalCategory(d.Category)
	if err != nil {
		return err
	}
	d.Category = cat
	return nil
}

func validatePatch(p *entity.ReceiptPatch) error {
	v := common.NewValidator().
		Field("amount", p.Amount, common.NonNegative).
		Field("tax_amount", p.TaxAmount, common.NonNegative).
		Field("vendor", p.Vendor, common.MaxLength(255)).
		Field("notes", p.Notes, common.MaxLength(2000))
	if err := v.Error(); err != nil {
		return err
	}
	cat, err := canonicalCategory(p.Category)
	if err != nil {
		return err
	}
	p.Category = cat
	return nil
}

// canonicalCategory maps reviewer input onto the fixed category list.
func canonicalCategory(in *string) (*string, error) {
	if in == nil || strings.TrimSpace(*in) == "" {
		return nil, nil
	}
	cat, ok := constants.Canonicalize(*in)
	if !ok {
		return nil, common.NewAppError("VALIDATION_ERROR", fmt.Sprintf("unknown category %q", *in), common.ErrValidation)
	}
	s := string(cat)
	return &s, nil
}
