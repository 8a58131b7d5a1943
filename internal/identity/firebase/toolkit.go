package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aiguard/console/internal/config"
)

// =============================================================================
// Identity Toolkit wire types
// =============================================================================

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type oobRequest struct {
	RequestType string `json:"requestType"`
	Email       string `json:"email"`
}

type updateRequest struct {
	IDToken           string `json:"idToken"`
	DisplayName       string `json:"displayName"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// authResponse is shared by signInWithPassword, signUp and update.
type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

func (r *authResponse) lifetime() time.Duration {
	secs, err := strconv.Atoi(r.ExpiresIn)
	if err != nil || secs <= 0 {
		return time.Hour
	}
	return time.Duration(secs) * time.Second
}

// =============================================================================
// Identity Toolkit calls
// =============================================================================

func (p *Provider) signInWithPassword(ctx context.Context, email, password string) (*authResponse, error) {
	var resp authResponse
	err := p.post(ctx, "accounts:signInWithPassword", "signIn", passwordRequest{email, password, true}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (p *Provider) signUp(ctx context.Context, email, password string) (*authResponse, error) {
	var resp authResponse
	if err := p.post(ctx, "accounts:signUp", "signUp", passwordRequest{email, password, true}, &resp); err != nil {
		return nil, err
	}
	if resp.Email == "" {
		resp.Email = email
	}
	return &resp, nil
}

func (p *Provider) sendPasswordReset(ctx context.Context, email string) error {
	return p.post(ctx, "accounts:sendOobCode", "sendOobCode", oobRequest{"PASSWORD_RESET", email}, nil)
}

func (p *Provider) updateProfile(ctx context.Context, idToken, displayName string) (*authResponse, error) {
	var resp authResponse
	if err := p.post(ctx, "accounts:update", "update", updateRequest{idToken, displayName, true}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// HTTP Helpers
// =============================================================================

func (p *Provider) post(ctx context.Context, method, op string, payload, result any) error {
	target := p.toolkitURL + "/" + method + "?key=" + url.QueryEscape(p.apiKey)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", config.DefaultUserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxResponseSize))
	if err != nil {
		return fmt.Errorf("%s: reading response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseError(op, resp.StatusCode, respBody)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("%s: parsing response: %w", op, err)
	}
	return nil
}
