// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"

	"tourbook/internal/database"
	"tourbook/internal/models"
)

// storageError classifies a gorm or driver failure. Errors that already carry
// an application code pass through untouched.
func storageError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewStorageError(err, database.IsRetryable(err))
}
