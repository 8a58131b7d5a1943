package services

import (
	"context"
	"encoding/json"
)

const tokensPath = "/_api/users/tokens"

// TokenService manages the caller's personal access tokens.
type TokenService struct {
	d Doer
}

// List returns every token, revoked ones included.
func (s *TokenService) List(ctx context.Context) ([]PersonalAccessToken, error) {
	var raw json.RawMessage
	if err := s.d.Do(ctx, get(tokensPath, nil), &raw); err != nil {
		return nil, err
	}
	return decodeList[PersonalAccessToken](raw, "tokens")
}

// Create issues a token. The secret is only present in this response.
func (s *TokenService) Create(ctx context.Context, req CreateTokenRequest) (*PersonalAccessToken, error) {
	if err := ValidateTokenRequest(req); err != nil {
		return nil, err
	}
	var tok PersonalAccessToken
	if err := s.d.Do(ctx, post(tokensPath, req), &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Rotate replaces the secret of a token and returns the new one.
func (s *TokenService) Rotate(ctx context.Context, id string) (*PersonalAccessToken, error) {
	if err := requireID("tokenId", id); err != nil {
		return nil, err
	}
	var tok PersonalAccessToken
	if err := s.d.Do(ctx, post(tokensPath+"/"+segment(id)+"/rotate", nil), &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Delete revokes a token.
func (s *TokenService) Delete(ctx context.Context, id string) error {
	if err := requireID("tokenId", id); err != nil {
		return err
	}
	return s.d.Do(ctx, del(tokensPath+"/"+segment(id)), nil)
}
