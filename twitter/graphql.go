package twitter

import (
	"context"
	"fmt"
)

// GetUserByScreenName fetches a user profile by Twitter handle.
func (c *Client) GetUserByScreenName(ctx context.Context, handle string) (*TwitterUser, error) {
	return c.fetchUser(ctx, OpUserByScreenName, map[string]any{
		"screen_name":              handle,
		"withSafetyModeUserFields": true,
	})
}

// GetUserByRestID fetches a user profile by numeric user ID.
func (c *Client) GetUserByRestID(ctx context.Context, userID string) (*TwitterUser, error) {
	return c.fetchUser(ctx, OpUserByRestID, map[string]any{
		"userId":                   userID,
		"withSafetyModeUserFields": true,
	})
}

func (c *Client) fetchUser(ctx context.Context, operation string, variables map[string]any) (*TwitterUser, error) {
	url, err := EndpointURL(operation)
	if err != nil {
		return nil, err
	}
	url = addGraphQLParams(url, variables, Endpoints[operation].Features)

	body, err := c.doGET(ctx, operation, url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	u, err := parseUser(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", operation, err)
	}
	return u, nil
}

// GetFollowers fetches up to maxCount followers of a user, following
// pagination cursors. On error the users fetched so far are returned with it.
func (c *Client) GetFollowers(ctx context.Context, userID string, maxCount int) ([]*TwitterUser, error) {
	var users []*TwitterUser
	var cursor string

	for {
		select {
		case <-ctx.Done():
			return users, ctx.Err()
		default:
		}

		variables := map[string]any{
			"userId":                 userID,
			"count":                  min(100, maxCount-len(users)),
			"includePromotedContent": false,
		}
		if cursor != "" {
			variables["cursor"] = cursor
		}

		url, err := EndpointURL(OpFollowers)
		if err != nil {
			return users, err
		}
		url = addGraphQLParams(url, variables, Endpoints[OpFollowers].Features)

		body, err := c.doGET(ctx, OpFollowers, url)
		if err != nil {
			return users, fmt.Errorf("%s: %w", OpFollowers, err)
		}

		batch, nextCursor, err := parseUserList(body)
		if err != nil {
			return users, fmt.Errorf("parse %s: %w", OpFollowers, err)
		}
		users = append(users, batch...)

		// An empty page with a cursor means the timeline is exhausted.
		if nextCursor == "" || nextCursor == cursor || len(batch) == 0 || len(users) >= maxCount {
			break
		}
		cursor = nextCursor
	}
	return users, nil
}
