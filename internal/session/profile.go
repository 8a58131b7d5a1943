package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aiguard/console/internal/identity"
	"github.com/aiguard/console/internal/services"
)

// Identity is the merged view of the provider principal and the backend
// profile. Synthesized marks a placeholder built from provider fields alone
// because the backend profile could not be fetched.
type Identity struct {
	services.User
	Synthesized bool `json:"synthesized,omitempty"`
}

func (id *Identity) clone() *Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

// ProfileClient is the slice of the users service Profile Sync needs.
// *services.UserService satisfies it.
type ProfileClient interface {
	GetProfile(ctx context.Context) (*services.User, error)
	CreateProfile(ctx context.Context, upd services.ProfileUpdate) (*services.User, error)
	UpdateProfile(ctx context.Context, upd services.ProfileUpdate) (*services.User, error)
}

// ProfileSync reconciles provider principals with backend profiles.
type ProfileSync struct {
	users ProfileClient
	now   func() time.Time
}

// NewProfileSync creates a ProfileSync over users.
func NewProfileSync(users ProfileClient) *ProfileSync {
	return &ProfileSync{users: users, now: time.Now}
}

// Fetch returns the backend profile for p. On any failure it returns a
// synthesized identity together with the failure, so the result is never nil.
func (s *ProfileSync) Fetch(ctx context.Context, p *identity.Principal) (*Identity, error) {
	u, err := s.users.GetProfile(ctx)
	if err != nil {
		log.Warn().Str("uid", p.UID).Err(err).Msg("profile fetch failed, using provider identity")
		return s.fallback(p), err
	}
	return &Identity{User: *u}, nil
}

// Create provisions the backend profile after signup.
func (s *ProfileSync) Create(ctx context.Context, name string) (*Identity, error) {
	u, err := s.users.CreateProfile(ctx, services.ProfileUpdate{Name: name})
	if err != nil {
		return nil, err
	}
	return &Identity{User: *u}, nil
}

// Update stores a new display name and merges the response into current.
// Fields the response leaves empty keep their current values.
func (s *ProfileSync) Update(ctx context.Context, current *Identity, name string) (*Identity, error) {
	u, err := s.users.UpdateProfile(ctx, services.ProfileUpdate{Name: name})
	if err != nil {
		return nil, err
	}
	if current == nil {
		return &Identity{User: *u}, nil
	}
	return merge(current, u), nil
}

func (s *ProfileSync) fallback(p *identity.Principal) *Identity {
	now := s.now().UTC()
	return &Identity{
		User: services.User{
			UID:       p.UID,
			Email:     p.Email,
			Name:      p.DisplayName,
			Tier:      services.TierFree,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Synthesized: true,
	}
}

func merge(current *Identity, u *services.User) *Identity {
	out := current.clone()
	if u.UID != "" {
		out.UID = u.UID
	}
	if u.Email != "" {
		out.Email = u.Email
	}
	if u.Name != "" {
		out.Name = u.Name
	}
	if u.Tier != "" {
		out.Tier = u.Tier
	}
	if !u.CreatedAt.IsZero() {
		out.CreatedAt = u.CreatedAt
		out.Synthesized = false
	}
	if !u.UpdatedAt.IsZero() {
		out.UpdatedAt = u.UpdatedAt
	}
	return out
}
