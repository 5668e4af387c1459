// Package guard проверяет, что вызывающий пользователь имеет доступ
// к данным запрошенного владельца.
package guard

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/apperr"
)

// AssertOwnerOrSelf сравнивает идентификатор из проверенного токена с запрошенным.
// Обе стороны приводятся к uuid.UUID; значение, которое не разбирается как uuid,
// не может совпасть ни с кем.
func AssertOwnerOrSelf(requestedOwnerID, callerID string) error {
	const op = "guard.AssertOwnerOrSelf"

	requested, err := uuid.Parse(strings.TrimSpace(requestedOwnerID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, apperr.ErrForbidden)
	}
	caller, err := uuid.Parse(strings.TrimSpace(callerID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, apperr.ErrForbidden)
	}
	return AssertOwner(requested, caller)
}

// AssertOwner - вариант AssertOwnerOrSelf для уже разобранных идентификаторов.
func AssertOwner(ownerID, callerID uuid.UUID) error {
	if ownerID == uuid.Nil || ownerID != callerID {
		return fmt.Errorf("guard.AssertOwner: %w", apperr.ErrForbidden)
	}
	return nil
}
