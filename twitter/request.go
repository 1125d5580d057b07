package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"

	"github.com/anatolykoptev/go-followgraph"
)

const maxRetries = 3

// doGET executes a GET request with multi-account retry, ct0 rotation, relogin,
// and guest-token fallback. Returned errors wrap one of the followgraph
// sentinels so callers can classify them.
func (c *Client) doGET(ctx context.Context, endpoint, url string) ([]byte, error) {
	// Anti-fingerprint jitter
	if err := stealth.DefaultJitter.Sleep(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			delay := stealth.DefaultBackoff.Duration(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		acc, err := c.nextAccount(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if lastErr == nil {
				lastErr = fmt.Errorf("no account available for %s: %w: %w", endpoint, followgraph.ErrRateLimited, err)
			}
			break
		}

		body, retry, err := c.tryAccount(acc, endpoint, url)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}

	if requiresAuth(endpoint) {
		if lastErr != nil {
			return nil, fmt.Errorf("pool exhausted for %s (requires auth): %w", endpoint, lastErr)
		}
		return nil, fmt.Errorf("%s requires an authenticated account: %w", endpoint, followgraph.ErrTransient)
	}
	return c.guestGET(ctx, endpoint, url, lastErr)
}

// nextAccount picks an account allowed to call endpoint. Authenticated-only
// endpoints wait for one to free up.
func (c *Client) nextAccount(ctx context.Context, endpoint string) (*Account, error) {
	if c.pool == nil {
		return nil, ErrNoAccounts
	}
	filter := func(a *Account) bool { return a.usable(endpoint) }
	if requiresAuth(endpoint) {
		return c.pool.NextWithWait(ctx, filter, c.cfg.PoolWait)
	}
	return c.pool.Next(filter)
}

// tryAccount performs one request with acc. retry reports whether another
// account may succeed where this one failed.
func (c *Client) tryAccount(acc *Account, endpoint, url string) ([]byte, bool, error) {
	if acc.CT0Age() > ct0MaxAge {
		c.rotateCT0(acc, "proactive")
	}

	authTok, ct0, ua := acc.Credentials()
	body, respHdrs, status, err := c.get(c.clientForAccount(acc), url, accountHeaders(authTok, ct0, ua))
	if err != nil {
		if acc.Proxy != "" && isProxyError(err) {
			c.markProxyDown(acc)
		} else {
			acc.RecordFailure()
		}
		return nil, true, fmt.Errorf("%s: %w: %w", endpoint, followgraph.ErrTransient, err)
	}
	acc.resetProxyFailures()

	switch {
	case status == 429:
		c.recordAPICall(endpoint, false, true)
		acc.MarkEndpointRateLimited(endpoint, parseRateLimitReset(respHdrs["x-rate-limit-reset"]))
		return nil, true, statusError(endpoint, status, body)

	case status == 401 || status == 403:
		c.recordAPICall(endpoint, false, false)
		return c.recoverAccount(acc, endpoint, url, classifyError(body), status, body)

	case status != 200:
		c.recordAPICall(endpoint, false, false)
		slog.Warn("doGET non-200", slog.String("endpoint", endpoint), slog.Int("status", status), slog.String("body", truncateBytes(body, 500)))
		if shouldDeactivate := acc.RecordFailure(); shouldDeactivate {
			total, failed, consec := acc.Stats()
			slog.Warn("account unhealthy, deactivating",
				slog.String("user", acc.Username),
				slog.Int("total", total),
				slog.Int("failed", failed),
				slog.Int("consec", consec))
			c.pool.DeactivateItem(acc)
		}
		return nil, false, statusError(endpoint, status, body)
	}

	// HTTP 200: check for error codes in the response body.
	class := classifyError(body)
	switch class {
	case errNone:
		return c.succeed(acc, endpoint, body, respHdrs), false, nil
	case errInternal:
		if hasResponseData(body) {
			slog.Debug("error 131 with usable data, treating as success", slog.String("endpoint", endpoint))
			return c.succeed(acc, endpoint, body, respHdrs), false, nil
		}
		slog.Warn("error 131 without data, retrying", slog.String("user", acc.Username), slog.String("endpoint", endpoint))
		return nil, true, fmt.Errorf("%s: twitter internal error (131): %w", endpoint, followgraph.ErrTransient)
	}
	c.recordAPICall(endpoint, false, class == errBanned)
	return c.recoverAccount(acc, endpoint, url, class, status, body)
}

// succeed records a successful call and adopts any rotated ct0.
func (c *Client) succeed(acc *Account, endpoint string, body []byte, respHdrs map[string]string) []byte {
	c.adoptCT0(acc, respHdrs)
	c.recordAPICall(endpoint, true, false)
	acc.RecordSuccess()
	return body
}

// recoverAccount handles an API error class. Errors about the requested user
// end the request; account-level errors penalize acc and may repair it first.
func (c *Client) recoverAccount(acc *Account, endpoint, url string, class errorClass, status int, body []byte) ([]byte, bool, error) {
	if target := targetError(class); target != nil {
		return nil, false, fmt.Errorf("%s: %w", endpoint, target)
	}

	switch class {
	case errCSRF:
		slog.Warn("CSRF error 353, rotating ct0", slog.String("user", acc.Username))
		c.rotateCT0(acc, "csrf")
		return c.retryOnce(acc, endpoint, url)

	case errAuthExpired:
		slog.Warn("auth expired (code 32), attempting relogin", slog.String("user", acc.Username))
		if err := c.relogin(acc); err != nil {
			slog.Warn("relogin failed, soft-deactivating", slog.String("user", acc.Username), slog.Any("error", err))
			c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
			return nil, true, fmt.Errorf("%s: %w: %w", endpoint, followgraph.ErrTransient, err)
		}
		out, retry, err := c.retryOnce(acc, endpoint, url)
		if err != nil {
			c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
		}
		return out, retry, err

	case errBanned:
		slog.Warn("account rate limited (code 88)", slog.String("user", acc.Username))
		c.pool.SoftDeactivate(acc, c.cfg.BanCooldown)
		return nil, true, fmt.Errorf("%s: account %s hit code 88: %w", endpoint, acc.Username, followgraph.ErrRateLimited)

	case errSuspended:
		slog.Warn("account suspended (code 64), permanently deactivating", slog.String("user", acc.Username))
		c.pool.DeactivateItem(acc)
		return nil, true, fmt.Errorf("%s: account %s suspended: %w", endpoint, acc.Username, followgraph.ErrTransient)

	case errLocked:
		slog.Warn("account locked (code 326), needs manual unlock", slog.String("user", acc.Username))
		c.pool.SoftDeactivate(acc, c.cfg.BanCooldown)
		return nil, true, fmt.Errorf("%s: account %s locked: %w", endpoint, acc.Username, followgraph.ErrTransient)

	case errBlocked:
		slog.Warn("account blocked (code 161)", slog.String("user", acc.Username))
		c.pool.SoftDeactivate(acc, c.cfg.AuthCooldown)
		return nil, true, fmt.Errorf("%s: account %s blocked: %w", endpoint, acc.Username, followgraph.ErrTransient)
	}

	acc.RecordFailure()
	return nil, true, statusError(endpoint, status, body)
}

// retryOnce repeats the request with the account's refreshed credentials.
func (c *Client) retryOnce(acc *Account, endpoint, url string) ([]byte, bool, error) {
	authTok, ct0, ua := acc.Credentials()
	body, respHdrs, status, err := c.get(c.clientForAccount(acc), url, accountHeaders(authTok, ct0, ua))
	if err == nil && status == 200 && classifyError(body) == errNone {
		return c.succeed(acc, endpoint, body, respHdrs), false, nil
	}
	acc.RecordFailure()
	if err != nil {
		return nil, true, fmt.Errorf("%s: retry with refreshed credentials: %w: %w", endpoint, followgraph.ErrTransient, err)
	}
	return nil, true, fmt.Errorf("%s: retry with refreshed credentials failed (HTTP %d): %w", endpoint, status, followgraph.ErrTransient)
}

// guestGET serves public endpoints with a guest token once the pool is exhausted.
func (c *Client) guestGET(ctx context.Context, endpoint, url string, lastErr error) ([]byte, error) {
	gt, ok := c.guestTokenCached()
	if !ok {
		token, err := c.acquireGuestToken(ctx)
		if err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("pool exhausted for %s: %w", endpoint, lastErr)
			}
			return nil, fmt.Errorf("guest token unavailable for %s: %w: %w", endpoint, followgraph.ErrTransient, err)
		}
		c.setGuestToken(token)
		gt = token
		slog.Info("guest token acquired as fallback", slog.String("endpoint", endpoint))
	}

	body, respHdrs, status, err := c.get(c.client, url, guestHeaders(gt))
	if err != nil {
		return nil, fmt.Errorf("%s (guest): %w: %w", endpoint, followgraph.ErrTransient, err)
	}
	switch status {
	case 429:
		c.recordAPICall(endpoint, false, true)
		c.markGuestTokenRateLimited(parseRateLimitReset(respHdrs["x-rate-limit-reset"]))
		return nil, statusError(endpoint+" (guest)", status, body)
	case 401, 403:
		slog.Warn("guest token expired, reacquiring", slog.String("endpoint", endpoint), slog.Int("status", status))
		c.setGuestToken("")
		newGT, err := c.acquireGuestToken(ctx)
		if err != nil {
			c.recordAPICall(endpoint, false, false)
			return nil, fmt.Errorf("guest token reacquisition failed for %s: %w: %w", endpoint, followgraph.ErrTransient, err)
		}
		c.setGuestToken(newGT)
		body, _, status, err = c.get(c.client, url, guestHeaders(newGT))
		if err != nil {
			return nil, fmt.Errorf("%s (guest retry): %w: %w", endpoint, followgraph.ErrTransient, err)
		}
	}
	if status != 200 {
		c.recordAPICall(endpoint, false, false)
		return nil, statusError(endpoint+" (guest)", status, body)
	}
	if target := targetError(classifyError(body)); target != nil {
		c.recordAPICall(endpoint, false, false)
		return nil, fmt.Errorf("%s (guest): %w", endpoint, target)
	}
	c.recordAPICall(endpoint, true, false)
	return body, nil
}

// isProxyError returns true if the error looks like a proxy connectivity failure.
func isProxyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, needle := range []string{"proxy", "SOCKS", "tunnel", "connection refused", "no such host"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// markProxyDown applies exponential backoff for proxy failures.
func (c *Client) markProxyDown(acc *Account) {
	acc.mu.Lock()
	acc.proxyConsecFails++
	fails := acc.proxyConsecFails
	acc.mu.Unlock()

	duration := stealth.BackoffConfig{
		InitialWait: c.cfg.ProxyBackoffInitial,
		MaxWait:     c.cfg.ProxyBackoffMax,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}.Duration(fails - 1)

	acc.mu.Lock()
	acc.proxyBackoff = time.Now().Add(duration)
	acc.mu.Unlock()

	slog.Warn("proxy down, backing off",
		slog.String("user", acc.Username),
		slog.String("proxy", stealth.MaskProxy(acc.Proxy)),
		slog.Int("consec_fails", fails),
		slog.Duration("backoff", duration))
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// hasResponseData returns true if the JSON body contains a non-null "data" field.
func hasResponseData(body []byte) bool {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(body, &probe) != nil {
		return false
	}
	return len(probe.Data) > 0 && string(probe.Data) != "null"
}

// addGraphQLParams builds the full URL with variables and features.
func addGraphQLParams(url string, variables, features map[string]any) string {
	v, _ := json.Marshal(variables)
	f, _ := json.Marshal(features)
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "variables=" + jsonEscape(v) + "&features=" + jsonEscape(f)
}

// jsonEscapes percent-encodes query JSON; cursors may carry + and =.
var jsonEscapes = strings.NewReplacer(
	"%", "%25",
	"+", "%2B",
	"&", "%26",
	"=", "%3D",
	" ", "%20",
	`"`, "%22",
	"{", "%7B",
	"}", "%7D",
	"[", "%5B",
	"]", "%5D",
	":", "%3A",
	",", "%2C",
	"'", "%27",
	"|", "%7C",
)

func jsonEscape(b []byte) string {
	return jsonEscapes.Replace(string(b))
}
