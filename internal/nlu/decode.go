package nlu

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const maxProductTokens = 3

// DecodeIntent repairs raw model output and validates it into an Intent.
// Invalid data is reported, never defaulted.
func DecodeIntent(raw, source string) (Intent, error) {
	repaired, err := RepairJSON(raw)
	if err != nil {
		return Intent{}, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(repaired)))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Intent{}, &MalformedResponseError{Reason: "invalid JSON"}
	}
	return validateFields(fields, source)
}

func validateFields(fields map[string]any, source string) (Intent, error) {
	intent := Intent{Source: source}

	rawAction, ok := fields["action"].(string)
	if !ok {
		return Intent{}, &MalformedResponseError{Field: "action", Reason: "missing or not a string"}
	}
	action, ok := ParseAction(rawAction)
	if !ok {
		return Intent{}, &MalformedResponseError{Field: "action", Reason: "must be add or sell"}
	}
	intent.Action = action

	rawProduct, ok := fields["product"].(string)
	if !ok {
		return Intent{}, &MalformedResponseError{Field: "product", Reason: "missing or not a string"}
	}
	product := strings.Join(strings.Fields(rawProduct), " ")
	if product == "" {
		return Intent{}, &MalformedResponseError{Field: "product", Reason: "empty"}
	}
	if len(strings.Fields(product)) > maxProductTokens {
		return Intent{}, &MalformedResponseError{Field: "product", Reason: "more than three words"}
	}
	intent.Product = product

	rawQty, present := fields["quantity"]
	if !present || rawQty == nil {
		return Intent{}, &MalformedResponseError{Field: "quantity", Reason: "missing"}
	}
	qty, ok := toNumber(rawQty)
	if !ok {
		return Intent{}, &MalformedResponseError{Field: "quantity", Reason: "not a number"}
	}
	if qty <= 0 {
		return Intent{}, &MalformedResponseError{Field: "quantity", Reason: "must be positive"}
	}
	intent.Quantity = qty

	// An absent price is read as "not mentioned", the same as null.
	if rawPrice := fields["price"]; rawPrice != nil {
		price, ok := toNumber(rawPrice)
		if !ok {
			return Intent{}, &MalformedResponseError{Field: "price", Reason: "not a number"}
		}
		if price < 0 {
			return Intent{}, &MalformedResponseError{Field: "price", Reason: "must not be negative"}
		}
		intent.Price = &price
	}

	return intent, nil
}

// toNumber accepts JSON numbers and numeric strings, rejecting NaN and infinities.
func toNumber(val any) (float64, bool) {
	var f float64
	switch v := val.(type) {
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = v
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
