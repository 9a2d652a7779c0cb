package access

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Fonality-code/wayfinder-life-sub000/app/observability/metrics"
	"github.com/Fonality-code/wayfinder-life-sub000/config"
	"github.com/Fonality-code/wayfinder-life-sub000/internal/types"
)

var _ AccessService = (*AccessServiceImpl)(nil)

// AccessService resolves the authorization role for a principal and exposes
// the administrative mutations on profiles.
type AccessService interface {
	// Resolve determines (role, profile) for a principal, creating a
	// baseline profile on first login. It NEVER returns an error: every
	// failure mode degrades to role "user" with best-effort profile
	// population. An unresolvable profile can only ever yield the least
	// privileged role, never an elevated one.
	Resolve(ctx context.Context, principal *types.Principal) types.Access

	// UpdateRole sets the role on a target profile. The admin precondition
	// is enforced at the route boundary, not here.
	UpdateRole(ctx context.Context, principalID string, role types.Role) error

	// UpdateDisplayName is the profile self-edit (display name only).
	UpdateDisplayName(ctx context.Context, principalID, displayName string) error

	GetProfile(ctx context.Context, principalID string) (*types.Profile, error)
	ListProfiles(ctx context.Context) ([]types.Profile, error)

	// RemoveProfile deletes a profile as part of admin user removal.
	RemoveProfile(ctx context.Context, principalID string) error
}

type AccessServiceImpl struct {
	logger *slog.Logger
	repo   AccessRepo
	cfg    config.AccessConfig

	// Short-TTL memoization of resolutions, keyed by principal id. Purged
	// on every role mutation so a role change is visible on the next
	// resolution.
	cache *gocache.Cache
}

func NewAccessService(repo AccessRepo, cfg config.AccessConfig, logger *slog.Logger) *AccessServiceImpl {
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &AccessServiceImpl{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
		cache:  gocache.New(cacheTTL, 5*time.Minute),
	}
}

// Resolve implements the lookup-or-create sequence:
//  1. profile by principal id (privileged client);
//  2. profile by contact address (legacy rows without id linkage);
//  3. baseline insert {id, email, display name, role "user"}, where a
//     uniqueness conflict means another request won the first-login race;
//  4. re-read by id for a consistent post-state.
//
// Steps are strictly ordered; the store's uniqueness constraint is the only
// synchronization for concurrent first logins.
func (s *AccessServiceImpl) Resolve(ctx context.Context, principal *types.Principal) types.Access {
	if principal == nil || principal.ID == "" {
		return types.Access{}
	}

	if cached, found := s.cache.Get(principal.ID); found {
		if access, ok := cached.(types.Access); ok {
			return access
		}
	}

	start := time.Now()
	m := metrics.Get()
	defer func() {
		m.ResolveRequestsTotal.Add(ctx, 1)
		m.ResolveDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	// Bounded timeout with the same fail-open-to-"user" semantics: a hung
	// store must not hang the caller.
	if s.cfg.ResolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ResolveTimeout)
		defer cancel()
	}

	l := s.logger.With(slog.String("method", "Resolve"), slog.String("principalID", principal.ID))

	access := s.resolve(ctx, l, principal)
	s.cache.Set(principal.ID, access, gocache.DefaultExpiration)
	return access
}

func (s *AccessServiceImpl) resolve(ctx context.Context, l *slog.Logger, principal *types.Principal) types.Access {
	m := metrics.Get()

	profile, err := s.repo.GetProfileByID(ctx, principal.ID)
	if err == nil {
		return accessFor(principal, profile)
	}
	if !errors.Is(err, types.ErrNotFound) {
		// Store unreachable: fail open on availability, closed on privilege.
		m.ProfileStoreErrorsTotal.Add(ctx, 1)
		l.WarnContext(ctx, "Profile lookup by id failed, defaulting role", slog.Any("error", err))
		return defaultedAccess(principal)
	}

	// Reconciliation for rows created before id linkage was enforced. This
	// avoids duplicating profiles for pre-existing accounts.
	if principal.Email != "" {
		profile, err = s.repo.GetProfileByEmail(ctx, principal.Email)
		if err == nil {
			l.InfoContext(ctx, "Resolved legacy profile by contact address",
				slog.String("profileID", profile.ID))
			return accessFor(principal, profile)
		}
		if !errors.Is(err, types.ErrNotFound) {
			m.ProfileStoreErrorsTotal.Add(ctx, 1)
			l.WarnContext(ctx, "Profile lookup by email failed, defaulting role", slog.Any("error", err))
			return defaultedAccess(principal)
		}
	}

	var email, displayName *string
	if principal.Email != "" {
		email = &principal.Email
	}
	if principal.DisplayName != "" {
		displayName = &principal.DisplayName
	}

	err = s.repo.InsertBaselineProfile(ctx, principal.ID, email, displayName)
	switch {
	case err == nil:
		m.BaselineProfilesCreatedTotal.Add(ctx, 1)
		l.InfoContext(ctx, "Baseline profile created")
	case errors.Is(err, types.ErrConflict):
		// Another request won the first-login race and created the row.
		l.DebugContext(ctx, "Baseline insert lost first-login race")
	default:
		// Insert failed for some other reason. Still proceed to the
		// re-read: the caller must never be blocked on a store hiccup.
		m.ProfileStoreErrorsTotal.Add(ctx, 1)
		l.WarnContext(ctx, "Baseline insert failed, proceeding with default role", slog.Any("error", err))
	}

	profile, err = s.repo.GetProfileByID(ctx, principal.ID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			m.ProfileStoreErrorsTotal.Add(ctx, 1)
		}
		l.WarnContext(ctx, "Post-create re-read failed, defaulting role", slog.Any("error", err))
		return defaultedAccess(principal)
	}
	return accessFor(principal, profile)
}

func accessFor(principal *types.Principal, profile *types.Profile) types.Access {
	role := profile.Role
	if !role.Valid() {
		role = types.RoleUser
	}
	return types.Access{
		Principal: principal,
		Role:      &role,
		Profile:   profile,
	}
}

// defaultedAccess is the safe fallback when the profile store cannot be
// consulted: least-privileged role, nil profile. Callers that must not act
// on a defaulted role check Profile != nil.
func defaultedAccess(principal *types.Principal) types.Access {
	role := types.RoleUser
	return types.Access{
		Principal: principal,
		Role:      &role,
		Profile:   nil,
	}
}

func (s *AccessServiceImpl) UpdateRole(ctx context.Context, principalID string, role types.Role) error {
	if !role.Valid() {
		return types.ErrConflict
	}
	if err := s.repo.UpdateRole(ctx, principalID, role); err != nil {
		return err
	}
	// The next resolution must observe the new role.
	s.cache.Delete(principalID)
	return nil
}

func (s *AccessServiceImpl) UpdateDisplayName(ctx context.Context, principalID, displayName string) error {
	if err := s.repo.UpdateDisplayName(ctx, principalID, displayName); err != nil {
		return err
	}
	s.cache.Delete(principalID)
	return nil
}

func (s *AccessServiceImpl) GetProfile(ctx context.Context, principalID string) (*types.Profile, error) {
	return s.repo.GetProfileByID(ctx, principalID)
}

func (s *AccessServiceImpl) ListProfiles(ctx context.Context) ([]types.Profile, error) {
	return s.repo.ListProfiles(ctx)
}

func (s *AccessServiceImpl) RemoveProfile(ctx context.Context, principalID string) error {
	if err := s.repo.DeleteProfile(ctx, principalID); err != nil {
		return err
	}
	s.cache.Delete(principalID)
	return nil
}
