package authz

import "context"

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
)

// Oracle answers role membership questions; membership management is out of scope.
type Oracle interface {
	HasRole(ctx context.Context, principal string, role Role) (bool, error)
}
