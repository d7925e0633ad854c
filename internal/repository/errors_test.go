package repository

import (
	"errors"
	"testing"

	"pariposhan/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"nil", nil, ""},
		{"record not found", gorm.ErrRecordNotFound, models.CodeNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, models.CodeConflict},
		{"duplicated key", gorm.ErrDuplicatedKey, models.CodeConflict},
		{"app error passes through", models.NewValidationError("bad"), models.CodeValidation},
		{"other", errors.New("connection reset"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := translateError(tt.err, "Item", 1)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, tt.code, models.ErrorCode(err))
		})
	}
}
