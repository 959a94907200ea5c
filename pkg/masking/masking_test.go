package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "****4567", MaskPhone("+966 50 123 4567"))
	assert.Equal(t, "****", MaskPhone("123"))
	assert.Equal(t, "", MaskPhone("  "))
}

func TestMaskFieldsNested(t *testing.T) {
	in := map[string]any{
		"claim_code": "SAN-2025-00001",
		"Phone":      "0501234567",
		"contacts": []any{
			map[string]any{"phone": "0559876543", "name": "Sara"},
		},
		"passenger": map[string]any{"phone": 12},
	}

	out := MaskFields(in, "phone")

	assert.Equal(t, "SAN-2025-00001", out["claim_code"])
	assert.Equal(t, "****4567", out["Phone"])
	contact := out["contacts"].([]any)[0].(map[string]any)
	assert.Equal(t, "****6543", contact["phone"])
	assert.Equal(t, "Sara", contact["name"])
	assert.Equal(t, "****", out["passenger"].(map[string]any)["phone"])
	assert.Equal(t, "0501234567", in["Phone"])
}
