// Package repository holds helpers shared by the gorm backed repositories.
package repository

import (
	"errors"

	"github.com/amirasaad/awgen/pkg/domain"
	"gorm.io/gorm"
)

// MapGormErrorToDomain converts GORM errors to domain errors so callers never
// depend on the storage driver. Errors without a mapping are returned as is.
func MapGormErrorToDomain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrAlreadyExists
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrInvalidData), errors.Is(err, gorm.ErrPrimaryKeyRequired):
		return domain.ErrValidation
	}
	return err
}

// WrapError runs a GORM operation and maps its error.
//
// Usage:
//
//	err := WrapError(func() error {
//	    return r.db.WithContext(ctx).Save(&setting).Error
//	})
func WrapError(op func() error) error {
	return MapGormErrorToDomain(op())
}
