package services

import "context"

const profilePath = "/_api/users/profile"

// UserService reads and writes the backend user profile.
type UserService struct {
	d Doer
}

// GetProfile returns the caller's profile.
func (s *UserService) GetProfile(ctx context.Context) (*User, error) {
	var u User
	if err := s.d.Do(ctx, get(profilePath, nil), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateProfile creates the caller's profile after signup.
func (s *UserService) CreateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	var u User
	if err := s.d.Do(ctx, post(profilePath, upd), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile changes the display name.
func (s *UserService) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	if err := ValidateProfileName(upd.Name); err != nil {
		return nil, err
	}
	var u User
	if err := s.d.Do(ctx, put(profilePath, upd), &u); err != nil {
		return nil, err
	}
	return &u, nil
}
