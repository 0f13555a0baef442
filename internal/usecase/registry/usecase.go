package registry

import (
	"context"
	"strings"

	"pooled-lending/internal/domain/authz"
	domain "pooled-lending/internal/domain/registry"
	"pooled-lending/internal/domain/uow"
	apperrors "pooled-lending/internal/errors"
	"pooled-lending/internal/logger"
	"pooled-lending/internal/usecase/shared"
	"pooled-lending/pkg/guard"
)

// Usecase administers the asset allow-list and the default funding threshold.
type Usecase struct {
	repo     domain.Repository
	uow      uow.UnitOfWork
	authz    authz.Oracle
	guard    *guard.Guard
	fallback uint32
}

func NewUsecase(r domain.Repository, tx uow.UnitOfWork, o authz.Oracle, g *guard.Guard, fallbackThreshold uint32) *Usecase {
	return &Usecase{repo: r, uow: tx, authz: o, guard: g, fallback: fallbackThreshold}
}

func normalize(asset string) (string, error) {
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "asset is required")
	}
	return asset, nil
}

func validThreshold(pct uint32) error {
	if pct < 1 || pct > 100 {
		return apperrors.WithMessagef(apperrors.ErrInvalidParameter, "threshold must be within 1..100, got %d", pct)
	}
	return nil
}

func (u *Usecase) admin(ctx context.Context, caller string, fn func(r uow.Repos) error) error {
	if err := shared.Require(ctx, u.authz, caller, authz.RoleAdmin); err != nil {
		return err
	}
	ctx, release, err := shared.Enter(ctx, u.guard)
	if err != nil {
		return err
	}
	defer release()
	if err := u.uow.WithinTx(ctx, fn); err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, err)
	}
	return nil
}

func (u *Usecase) AllowAsset(ctx context.Context, caller, asset string) error {
	asset, err := normalize(asset)
	if err != nil {
		return err
	}
	if err := u.admin(ctx, caller, func(r uow.Repos) error { return r.Registry.AddAsset(ctx, asset) }); err != nil {
		return err
	}
	logger.Get().Infow("asset allowed", "asset", asset, "by", caller)
	return nil
}

// DisallowAsset blocks new loans in asset; existing loans are untouched.
func (u *Usecase) DisallowAsset(ctx context.Context, caller, asset string) error {
	asset, err := normalize(asset)
	if err != nil {
		return err
	}
	if err := u.admin(ctx, caller, func(r uow.Repos) error { return r.Registry.RemoveAsset(ctx, asset) }); err != nil {
		return err
	}
	logger.Get().Infow("asset disallowed", "asset", asset, "by", caller)
	return nil
}

func (u *Usecase) SetDefaultThreshold(ctx context.Context, caller string, pct uint32) error {
	if err := validThreshold(pct); err != nil {
		return err
	}
	if err := u.admin(ctx, caller, func(r uow.Repos) error { return r.Registry.SetDefaultThreshold(ctx, pct) }); err != nil {
		return err
	}
	logger.Get().Infow("default threshold updated", "threshold_pct", pct, "by", caller)
	return nil
}

// Seed installs startup configuration without a role check.
func (u *Usecase) Seed(ctx context.Context, assets []string, threshold uint32) error {
	if err := validThreshold(threshold); err != nil {
		return err
	}
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		for _, a := range assets {
			a, err := normalize(a)
			if err != nil {
				return err
			}
			if err := r.Registry.AddAsset(ctx, a); err != nil {
				return err
			}
		}
		return r.Registry.SetDefaultThreshold(ctx, threshold)
	})
}

func (u *Usecase) IsSupported(ctx context.Context, asset string) (bool, error) {
	return u.repo.IsSupported(ctx, asset)
}

func (u *Usecase) DefaultThreshold(ctx context.Context) (uint32, error) {
	return u.repo.DefaultThreshold(ctx, u.fallback)
}

func (u *Usecase) ListAssets(ctx context.Context) ([]string, error) {
	rows, err := u.repo.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Asset)
	}
	return out, nil
}
