package repositories

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Common repository errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key violation")
	ErrCapacityExceeded = errors.New("time slot has no spare capacity")
	ErrStaleState       = errors.New("record changed state concurrently")
	ErrOrderInTransit   = errors.New("order is on a started route")
)

// translate maps driver errors onto the repository sentinels. The database must be opened with
// TranslateError so that unique violations surface as gorm.ErrDuplicatedKey.
func translate(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	default:
		return errors.Wrap(err, msg)
	}
}
