package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestDecodeIntent_DocumentedExample(t *testing.T) {
	intent, err := DecodeIntent(`{"action":"sell","product":"eggs","quantity":24,"price":300}`, "gemini")
	require.NoError(t, err)
	assert.Equal(t, Intent{
		Action:   ActionSell,
		Product:  "eggs",
		Quantity: 24,
		Price:    ptr(300),
		Source:   "gemini",
	}, intent)
}

func TestDecodeIntent_Normalisation(t *testing.T) {
	intent, err := DecodeIntent("```json\n{\"action\":\"ADD\",\"product\":\"  basmati   rice \",\"quantity\":\"2.5\",\"price\":\"1,200\"}\n```", "gemini")
	require.NoError(t, err)
	assert.Equal(t, ActionAdd, intent.Action)
	assert.Equal(t, "basmati rice", intent.Product)
	assert.Equal(t, 2.5, intent.Quantity)
	require.NotNil(t, intent.Price)
	assert.Equal(t, 1200.0, *intent.Price)
}

func TestDecodeIntent_NullAndMissingPrice(t *testing.T) {
	intent, err := DecodeIntent(`{"action":"add","product":"rice","quantity":5,"price":null}`, "gemini")
	require.NoError(t, err)
	assert.Nil(t, intent.Price)

	intent, err = DecodeIntent(`{"action":"add","product":"rice","quantity":5}`, "gemini")
	require.NoError(t, err)
	assert.Nil(t, intent.Price)
}

func TestDecodeIntent_TruncatedStillValidates(t *testing.T) {
	// Repairs fine, but the required quantity is missing.
	_, err := DecodeIntent(`{"action":"add","product":"sugar`, "gemini")
	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "quantity", malformed.Field)
}

func TestDecodeIntent_ValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"missing action", `{"product":"rice","quantity":1}`, "action"},
		{"unknown action", `{"action":"return","product":"rice","quantity":1}`, "action"},
		{"action not string", `{"action":1,"product":"rice","quantity":1}`, "action"},
		{"missing product", `{"action":"add","quantity":1}`, "product"},
		{"null product", `{"action":"add","product":null,"quantity":1}`, "product"},
		{"blank product", `{"action":"add","product":"   ","quantity":1}`, "product"},
		{"long product", `{"action":"add","product":"very long fancy product name","quantity":1}`, "product"},
		{"missing quantity", `{"action":"add","product":"rice"}`, "quantity"},
		{"null quantity", `{"action":"add","product":"rice","quantity":null}`, "quantity"},
		{"zero quantity", `{"action":"add","product":"rice","quantity":0}`, "quantity"},
		{"negative quantity", `{"action":"add","product":"rice","quantity":-2}`, "quantity"},
		{"word quantity", `{"action":"add","product":"rice","quantity":"five"}`, "quantity"},
		{"negative price", `{"action":"sell","product":"rice","quantity":1,"price":-5}`, "price"},
		{"bool price", `{"action":"sell","product":"rice","quantity":1,"price":true}`, "price"},
		{"nan price", `{"action":"sell","product":"rice","quantity":1,"price":"NaN"}`, "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeIntent(tt.raw, "gemini")
			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, tt.field, malformed.Field)
			assert.Equal(t, KindMalformedResponse, Kind(err))
		})
	}
}

func TestDecodeIntent_NoJSON(t *testing.T) {
	_, err := DecodeIntent("I could not understand that.", "gemini")
	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "no JSON found", malformed.Reason)
}
