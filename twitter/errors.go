package twitter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/anatolykoptev/go-followgraph"
)

// errorClass categorizes Twitter API error responses for targeted handling.
type errorClass int

const (
	errNone          errorClass = iota
	errBanned                   // 88: rate limit abuse
	errSuspended                // 64: account suspended
	errLocked                   // 326: account locked (captcha needed)
	errCSRF                     // 353: csrf token mismatch
	errAuthExpired              // 32: could not authenticate
	errBlocked                  // 161: blocked from performing action
	errNotAuthorized            // 179, 219: not authorized to see the target
	errInternal                 // 131: Twitter internal error
	errUserNotFound             // 50, 63: target user missing or suspended
)

// classifyError inspects a response body for known Twitter error codes.
func classifyError(body []byte) errorClass {
	var errResp struct {
		Errors []struct {
			Code int `json:"code"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &errResp) != nil || len(errResp.Errors) == 0 {
		return errNone
	}

	for _, e := range errResp.Errors {
		switch e.Code {
		case 88:
			return errBanned
		case 64:
			return errSuspended
		case 326:
			return errLocked
		case 353:
			return errCSRF
		case 32:
			return errAuthExpired
		case 161:
			return errBlocked
		case 179, 219:
			return errNotAuthorized
		case 131:
			return errInternal
		case 50, 63:
			return errUserNotFound
		}
	}
	return errNone
}

// targetError returns the traversal error for classes that describe the
// requested user rather than the calling account, or nil.
func targetError(class errorClass) error {
	switch class {
	case errNotAuthorized:
		return followgraph.ErrPrivateAccount
	case errUserNotFound:
		return followgraph.ErrNotFound
	}
	return nil
}

// statusError maps a non-200 HTTP status onto the traversal taxonomy.
func statusError(endpoint string, status int, body []byte) error {
	var sentinel error
	switch {
	case status == 429:
		sentinel = followgraph.ErrRateLimited
	case status == 404:
		sentinel = followgraph.ErrNotFound
	default:
		sentinel = followgraph.ErrTransient
	}
	return fmt.Errorf("%s HTTP %d: %s: %w", endpoint, status, truncateBytes(body, 200), sentinel)
}

// parseRateLimitReset parses the X-Rate-Limit-Reset unix timestamp header.
// Falls back to 15 minutes from now if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(15 * time.Minute)
}
