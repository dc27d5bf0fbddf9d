// Package authz implements the Authorization Core (spec §4.J): a role
// hierarchy over caller principals, backed by the Stable Storage Layer.
// Grounded in the teacher's pkg/config/validate.go ValidationError/
// ValidationErrors idiom for precondition checks (generalized here to
// bridgeerr since this package sits above the config layer), and in
// pkg/registry/validator.go's role/permission-flavored validation pass
// for the "caller must be Owner" gate pattern.
package authz

import (
	"context"
	"time"

	"github.com/icarus-mcp/icarus-bridge/internal/bridgeerr"
	"github.com/icarus-mcp/icarus-bridge/internal/ids"
	"github.com/icarus-mcp/icarus-bridge/internal/stablestore"
	"github.com/icarus-mcp/icarus-bridge/internal/wire"
)

// Role orders callers Owner > Admin > User for require_role_or_higher
// checks.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "Owner"
	case RoleAdmin:
		return "Admin"
	default:
		return "User"
	}
}

// ParseRole parses the textual role name.
func ParseRole(s string) (Role, error) {
	switch s {
	case "Owner":
		return RoleOwner, nil
	case "Admin":
		return RoleAdmin, nil
	case "User":
		return RoleUser, nil
	default:
		return 0, bridgeerr.NewValidationError("role", "must be one of Owner, Admin, User")
	}
}

// User is an authorization record for one principal.
type User struct {
	Principal ids.Principal
	AddedAt   time.Time
	AddedBy   ids.Principal
	Role      Role
	Active    bool
}

// AuthInfo is the result of a successful Authenticate call.
type AuthInfo struct {
	Principal       ids.Principal
	Role            Role
	IsAuthenticated bool
}

type callerKey struct{}

// WithCaller attaches the calling principal to ctx, the way a canister
// entrypoint attaches msg.caller() before dispatching into this package.
func WithCaller(ctx context.Context, p ids.Principal) context.Context {
	return context.WithValue(ctx, callerKey{}, p)
}

func callerFromContext(ctx context.Context) (ids.Principal, bool) {
	p, ok := ctx.Value(callerKey{}).(ids.Principal)
	return p, ok
}

// principalCodec and userCodec adapt User records to internal/wire's
// tagged binary Value shape for stablestore.
type principalCodec struct{}

func (principalCodec) Encode(p ids.Principal) wire.Value { return wire.TextValue(p.String()) }
func (principalCodec) Decode(v wire.Value) (ids.Principal, error) {
	raw, err := decodePrincipalFromText(v.Text)
	if err != nil {
		return ids.Principal{}, err
	}
	return raw, nil
}

func decodePrincipalFromText(text string) (ids.Principal, error) {
	return ids.ParsePrincipalText(text)
}

type userCodec struct{}

func (userCodec) Encode(u User) wire.Value {
	return wire.RecordValue(map[string]wire.Value{
		"principal": wire.TextValue(u.Principal.String()),
		"added_at":  wire.Int64Value(u.AddedAt.UnixNano()),
		"added_by":  wire.TextValue(u.AddedBy.String()),
		"role":      wire.TextValue(u.Role.String()),
		"active":    wire.BoolValue(u.Active),
	})
}

func (userCodec) Decode(v wire.Value) (User, error) {
	principal, err := decodePrincipalFromText(v.Record["principal"].Text)
	if err != nil {
		return User{}, err
	}
	addedBy, err := decodePrincipalFromText(v.Record["added_by"].Text)
	if err != nil {
		return User{}, err
	}
	role, err := ParseRole(v.Record["role"].Text)
	if err != nil {
		return User{}, err
	}
	return User{
		Principal: principal,
		AddedAt:   time.Unix(0, v.Record["added_at"].Int64),
		AddedBy:   addedBy,
		Role:      role,
		Active:    v.Record["active"].Bool,
	}, nil
}

// Store is the authorization core's persistent user table, keyed by the
// principal's checksummed text form since raw principal bytes (a slice)
// aren't a valid Go map key, the same reason the teacher keys its agent
// registry by name string rather than by a richer struct in
// pkg/mcp/router.go's map[string]AgentClient.
type Store struct {
	users *stablestore.StableMap[string, User]
}

// NewStore binds a Store to the given stable-memory region.
func NewStore(memoryID byte, mem stablestore.StableMemory) *Store {
	return &Store{
		users: stablestore.NewStableMap[string, User](memoryID, mem, textKeyCodec{}, userCodec{}, stablestore.Unbounded()),
	}
}

type textKeyCodec struct{}

func (textKeyCodec) Encode(s string) wire.Value { return wire.TextValue(s) }
func (textKeyCodec) Decode(v wire.Value) (string, error) { return v.Text, nil }

// InitAuth seeds the one initial Owner. owner must not be anonymous.
// Intended to run once, from on_init.
func (s *Store) InitAuth(ctx context.Context, owner ids.Principal) error {
	if owner.IsAnonymous() {
		return bridgeerr.NewValidationError("owner", "must not be anonymous")
	}
	return s.users.Put(owner.String(), User{
		Principal: owner,
		AddedAt:   time.Now(),
		AddedBy:   owner,
		Role:      RoleOwner,
		Active:    true,
	})
}

// Authenticate reads the caller principal from ctx and returns its
// AuthInfo. It traps (returns bridgeerr.Unauthorized) if the caller is
// anonymous, absent from the user table, or inactive.
func (s *Store) Authenticate(ctx context.Context) (AuthInfo, error) {
	caller, ok := callerFromContext(ctx)
	if !ok || caller.IsAnonymous() {
		return AuthInfo{}, &bridgeerr.Unauthorized{Principal: caller.String(), Reason: "anonymous or missing caller"}
	}

	user, found, err := s.users.Get(caller.String())
	if err != nil {
		return AuthInfo{}, err
	}
	if !found {
		return AuthInfo{}, &bridgeerr.Unauthorized{Principal: caller.String(), Reason: "not a registered user"}
	}
	if !user.Active {
		return AuthInfo{}, &bridgeerr.Unauthorized{Principal: caller.String(), Reason: "user is inactive"}
	}

	return AuthInfo{Principal: caller, Role: user.Role, IsAuthenticated: true}, nil
}

// RequireRoleOrHigher authenticates the caller and requires role at least
// min, trapping with bridgeerr.Unauthorized on an insufficient role.
func (s *Store) RequireRoleOrHigher(ctx context.Context, min Role) (AuthInfo, error) {
	info, err := s.Authenticate(ctx)
	if err != nil {
		return AuthInfo{}, err
	}
	if info.Role < min {
		return AuthInfo{}, &bridgeerr.Unauthorized{
			Principal: info.Principal.String(),
			Reason:    "insufficient role: have " + info.Role.String() + ", need at least " + min.String(),
		}
	}
	return info, nil
}

// AddUser registers p with role. Caller must be Owner; p must not be
// anonymous or already present.
func (s *Store) AddUser(ctx context.Context, p ids.Principal, role Role) error {
	caller, err := s.RequireRoleOrHigher(ctx, RoleOwner)
	if err != nil {
		return err
	}
	if p.IsAnonymous() {
		return bridgeerr.NewValidationError("principal", "must not be anonymous")
	}
	if _, found, err := s.users.Get(p.String()); err != nil {
		return err
	} else if found {
		return bridgeerr.NewValidationError("principal", "already present")
	}
	return s.users.Put(p.String(), User{
		Principal: p,
		AddedAt:   time.Now(),
		AddedBy:   caller.Principal,
		Role:      role,
		Active:    true,
	})
}

// RemoveUser removes p. Caller must be Owner and may not remove itself.
func (s *Store) RemoveUser(ctx context.Context, p ids.Principal) error {
	caller, err := s.RequireRoleOrHigher(ctx, RoleOwner)
	if err != nil {
		return err
	}
	if caller.Principal.Equal(p) {
		return bridgeerr.NewValidationError("principal", "owner cannot remove itself")
	}
	return s.users.Delete(p.String())
}

// UpdateUserRole changes p's role. Caller must be Owner; p must not be
// anonymous and must already be present.
func (s *Store) UpdateUserRole(ctx context.Context, p ids.Principal, role Role) error {
	if _, err := s.RequireRoleOrHigher(ctx, RoleOwner); err != nil {
		return err
	}
	if p.IsAnonymous() {
		return bridgeerr.NewValidationError("principal", "must not be anonymous")
	}
	user, found, err := s.users.Get(p.String())
	if err != nil {
		return err
	}
	if !found {
		return &bridgeerr.NotFound{Kind: "user", Key: p.String()}
	}
	user.Role = role
	return s.users.Put(p.String(), user)
}

// ListUsers returns every registered user. Caller must be Owner.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	if _, err := s.RequireRoleOrHigher(ctx, RoleOwner); err != nil {
		return nil, err
	}
	var out []User
	err := s.users.Range(func(_ string, u User) bool {
		out = append(out, u)
		return true
	})
	return out, err
}
