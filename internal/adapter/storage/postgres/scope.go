package postgres

import (
	"fmt"

	"backoffice-ops/internal/core/domain"
)

// appendScope adds the row-visibility predicate for a resolved business
// scope. Unrestricted scopes add nothing; restricted scopes match
// business_id against the permitted set. Every scoped query goes through
// here so visibility filtering cannot drift between entities.
func appendScope(conditions []string, args []any, scope domain.BusinessScope) ([]string, []any) {
	if scope.IsUnrestricted() {
		return conditions, args
	}
	args = append(args, scope.IDs())
	conditions = append(conditions, fmt.Sprintf("business_id = ANY($%d)", len(args)))
	return conditions, args
}
