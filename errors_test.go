package followgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"nil", nil, ReasonNone},
		{"wrapped private", fmt.Errorf("followers: %w", ErrPrivateAccount), ReasonPrivate},
		{"wrapped rate limit", fmt.Errorf("followers: %w", ErrRateLimited), ReasonRateLimited},
		{"wrapped not found", fmt.Errorf("user: %w", ErrNotFound), ReasonNotFound},
		{"wrapped transient", fmt.Errorf("user: %w", ErrTransient), ReasonTransient},
		{"canceled", fmt.Errorf("get: %w", context.Canceled), ReasonInterrupted},
		{"deadline", context.DeadlineExceeded, ReasonInterrupted},
		{"private message", errors.New("This account is Private"), ReasonPrivate},
		{"wait message", errors.New("Please wait a few minutes"), ReasonRateLimited},
		{"too many requests", errors.New("HTTP 429 Too Many Requests"), ReasonRateLimited},
		{"rate-limit message", errors.New("hit rate-limit"), ReasonRateLimited},
		{"anything else", errors.New("connection reset"), ReasonTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassify_SentinelBeatsMessage(t *testing.T) {
	err := fmt.Errorf("please wait: %w", ErrPrivateAccount)
	assert.Equal(t, ReasonPrivate, Classify(err))
}

func TestReason_String(t *testing.T) {
	assert.Equal(t, "private_account", ReasonPrivate.String())
	assert.Equal(t, "unknown", Reason(99).String())
	assert.True(t, ReasonTransient.retryable())
	assert.False(t, ReasonRateLimited.retryable())
}

func TestReason_KeysJSONMaps(t *testing.T) {
	data, err := json.Marshal(map[Reason]int{ReasonCycle: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"cycle":2}`, string(data))
}
