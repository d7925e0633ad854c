package validation

import (
	"strings"
	"testing"

	"pariposhan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category string
		ok       bool
	}{
		{name: "empty", category: "", ok: true},
		{name: "simple", category: "millets", ok: true},
		{name: "hyphenated", category: "ready-to-eat", ok: true},
		{name: "mixed case is folded", category: "Recipes", ok: true},
		{name: "leading hyphen", category: "-recipes", ok: false},
		{name: "space", category: "baby food", ok: false},
		{name: "too long", category: strings.Repeat("a", 65), ok: false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateCategory(tc.category)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

type reportBody struct {
	TargetKind string `json:"target_kind" validate:"required,reportkind"`
	TargetID   uint   `json:"target_id" validate:"required"`
	Reason     string `json:"reason" validate:"required,reason"`
	Details    string `json:"details" validate:"max=2000"`
}

func TestStruct(t *testing.T) {
	err := Struct(reportBody{TargetKind: "comment", TargetID: 3, Reason: "spam"})
	require.NoError(t, err)

	err = Struct(reportBody{TargetKind: "user", Reason: "boring"})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	assert.Contains(t, err.Error(), "target_kind")
	assert.Contains(t, err.Error(), "target_id")
	assert.Contains(t, err.Error(), "reason")
}
