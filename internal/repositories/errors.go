package repositories

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when a write hits a unique index.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrForeignKey is returned when a row is still referenced by another table.
	ErrForeignKey = errors.New("foreign key violated")
)

// translate maps gorm errors onto the repository sentinels. The database must
// be opened with gorm.Config.TranslateError for duplicate keys to be detected.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrForeignKey
	}
	return err
}
