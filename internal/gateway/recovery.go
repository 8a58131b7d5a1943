package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/aiguard/console/internal/apierror"
	"github.com/aiguard/console/internal/monitoring"
)

// maxReplays caps the 401 recovery protocol. The protocol has exactly two
// states (initial attempt, attempt after refresh); there is no loop.
const maxReplays = 1

// execute runs the recovery protocol for p:
//
//	initial --401 with principal--> forced refresh --ok--> after_refresh
//
// Any other outcome of either state is final. Non-2xx results are returned
// as *apierror.Error.
func (c *Client) execute(ctx context.Context, p *pendingRequest) (*response, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, apierror.Authentication(err)
	}

	res, err := c.send(ctx, p, monitoring.AttemptInitial, token)
	if err != nil {
		return nil, apierror.FromTransport(err, 0)
	}
	if isSuccess(res.status) {
		return res, nil
	}
	if res.status != http.StatusUnauthorized || !c.signedIn() {
		return nil, normalize(res.status, res.body)
	}

	return c.replayAfterRefresh(ctx, p, res, maxReplays)
}

// replayAfterRefresh force-refreshes the token, then re-sends p once.
// unauthorized is the 401 that started recovery; it is surfaced when the
// refresh fails.
func (c *Client) replayAfterRefresh(ctx context.Context, p *pendingRequest, unauthorized *response, budget int) (*response, error) {
	if budget <= 0 {
		return nil, normalize(unauthorized.status, unauthorized.body)
	}

	c.metrics.RecordRefresh()
	fresh, err := c.tokens.Token(ctx, true)
	if err != nil || fresh == "" {
		log.Debug().Err(err).Str("request_id", p.id).Msg("token refresh failed")
		return nil, normalize(unauthorized.status, unauthorized.body)
	}

	c.metrics.RecordReplay()
	res, err := c.send(ctx, p, monitoring.AttemptAfterRefresh, fresh)
	if err != nil {
		return nil, apierror.FromTransport(err, 0)
	}
	if !isSuccess(res.status) {
		return nil, normalize(res.status, res.body)
	}
	return res, nil
}

func (c *Client) signedIn() bool {
	return c.tokens != nil && c.tokens.Current() != nil
}

// currentToken returns a cached (non-forced) token, or "" when nobody is signed in.
func (c *Client) currentToken(ctx context.Context) (string, error) {
	if !c.signedIn() {
		return "", nil
	}
	return c.tokens.Token(ctx, false)
}
