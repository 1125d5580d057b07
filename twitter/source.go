package twitter

import (
	"context"

	"github.com/anatolykoptev/go-followgraph"
)

// Source adapts a Client to followgraph.ProfileSource and
// followgraph.FollowerSource.
type Source struct {
	client       *Client
	maxFollowers int
}

var (
	_ followgraph.ProfileSource  = (*Source)(nil)
	_ followgraph.FollowerSource = (*Source)(nil)
)

// NewSource wraps c. Follower lists are capped at the client's MaxFollowers.
func NewSource(c *Client) *Source {
	return &Source{client: c, maxFollowers: c.cfg.MaxFollowers}
}

// ProfileByUsername implements followgraph.ProfileSource.
func (s *Source) ProfileByUsername(ctx context.Context, username string) (*followgraph.UserInfo, error) {
	u, err := s.client.GetUserByScreenName(ctx, username)
	if err != nil {
		return nil, err
	}
	return userInfo(u), nil
}

// ProfileByID implements followgraph.ProfileSource.
func (s *Source) ProfileByID(ctx context.Context, userID string) (*followgraph.UserInfo, error) {
	u, err := s.client.GetUserByRestID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userInfo(u), nil
}

// Followers implements followgraph.FollowerSource. A failed page fails the
// whole listing so the caller never expands a silently truncated set.
func (s *Source) Followers(ctx context.Context, userID string) ([]followgraph.Follower, error) {
	users, err := s.client.GetFollowers(ctx, userID, s.maxFollowers)
	if err != nil {
		return nil, err
	}
	out := make([]followgraph.Follower, 0, len(users))
	for _, u := range users {
		out = append(out, followgraph.Follower{UserID: u.ID, Username: u.Handle})
	}
	return out, nil
}

// userInfo converts a parsed Twitter user. Twitter always reports its
// counters, so every count is known.
func userInfo(u *TwitterUser) *followgraph.UserInfo {
	return &followgraph.UserInfo{
		UserID:         u.ID,
		Username:       u.Handle,
		FullName:       u.DisplayName,
		Biography:      u.Bio,
		ExternalURL:    u.URL,
		IsPrivate:      u.IsProtected,
		IsVerified:     u.IsVerified,
		IsBusiness:     u.IsBusiness,
		PostsCount:     &u.TweetCount,
		FollowersCount: &u.Followers,
		FollowingCount: &u.Following,
	}
}
