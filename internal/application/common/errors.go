package common

import (
	"errors"

	"github.com/sgi/backend/internal/domain/shared"
)

func asDomainError(err error, target **shared.DomainError) bool {
	return errors.As(err, target)
}

// DomainCode returns the code of a domain error, or "" for other errors
func DomainCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
