// Package repository is the aggregate store: per-entity persistence over
// GORM with atomic counter maintenance.
package repository

import (
	"errors"
	"fmt"

	"pariposhan/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// translateError maps driver errors onto AppError codes. Errors that are
// already AppErrors pass through unchanged.
func translateError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	if isUniqueViolation(err) {
		return models.NewConflictError(fmt.Sprintf("%s already exists", resource))
	}
	return fmt.Errorf("%s %v: %w", resource, id, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
