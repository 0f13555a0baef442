package authz

import (
	"context"

	domain "pooled-lending/internal/domain/authz"
)

// Static is an Oracle over a fixed membership table, loaded from config.
type Static struct {
	members map[domain.Role]map[string]struct{}
}

func NewStatic(admins, operators []string) *Static {
	s := &Static{members: map[domain.Role]map[string]struct{}{
		domain.RoleAdmin:    {},
		domain.RoleOperator: {},
	}}
	for _, p := range admins {
		s.members[domain.RoleAdmin][p] = struct{}{}
	}
	for _, p := range operators {
		s.members[domain.RoleOperator][p] = struct{}{}
	}
	return s
}

func (s *Static) HasRole(_ context.Context, principal string, role domain.Role) (bool, error) {
	_, ok := s.members[role][principal]
	return ok, nil
}
