// Package followgraph walks a social account's follower graph to a bounded depth,
// resolving a profile for every visited user.
package followgraph

import (
	"encoding/json"
	"strconv"
)

const (
	// NotAvailable replaces string and count fields the upstream could not provide.
	NotAvailable = "N/A"

	// UnknownUsername replaces a username that neither the upstream nor the caller knew.
	UnknownUsername = "unknown"
)

// Tier names the resolution step that produced a Profile.
type Tier string

const (
	TierUsername Tier = "username"
	TierUserID   Tier = "user_id"
	TierFallback Tier = "fallback"
)

// Count is a profile counter that may be unknown.
type Count struct {
	Value int
	Known bool
}

// KnownCount returns a known counter.
func KnownCount(v int) Count { return Count{Value: v, Known: true} }

// countOf converts an optional upstream counter.
func countOf(v *int) Count {
	if v == nil {
		return Count{}
	}
	return KnownCount(*v)
}

// String returns the decimal value, or "N/A" when unknown.
func (c Count) String() string {
	if !c.Known {
		return NotAvailable
	}
	return strconv.Itoa(c.Value)
}

// MarshalJSON encodes a known count as a number and an unknown one as "N/A".
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Known {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(c.Value)
}

// MarshalYAML mirrors MarshalJSON.
func (c Count) MarshalYAML() (any, error) {
	if !c.Known {
		return NotAvailable, nil
	}
	return c.Value, nil
}

// Profile is a normalized snapshot of one user. Every string field holds either
// real data or a sentinel, never an empty string.
type Profile struct {
	UserID         string `json:"user_id" yaml:"user_id"`
	Username       string `json:"username" yaml:"username"`
	FullName       string `json:"full_name" yaml:"full_name"`
	Biography      string `json:"biography" yaml:"biography"`
	ExternalURL    string `json:"external_url" yaml:"external_url"`
	IsPrivate      bool   `json:"is_private" yaml:"is_private"`
	IsVerified     bool   `json:"is_verified" yaml:"is_verified"`
	IsBusiness     bool   `json:"is_business" yaml:"is_business"`
	PostsCount     Count  `json:"posts_count" yaml:"posts_count"`
	FollowersCount Count  `json:"followers_count" yaml:"followers_count"`
	FollowingCount Count  `json:"following_count" yaml:"following_count"`
	Tier           Tier   `json:"-" yaml:"-"`
}

// Degraded reports whether the profile is the minimal fallback record.
func (p Profile) Degraded() bool { return p.Tier == TierFallback }

// UserInfo is what a ProfileSource returns. Empty strings and nil counts mean
// the upstream did not provide the field.
type UserInfo struct {
	UserID         string
	Username       string
	FullName       string
	Biography      string
	ExternalURL    string
	IsPrivate      bool
	IsVerified     bool
	IsBusiness     bool
	PostsCount     *int
	FollowersCount *int
	FollowingCount *int
}

// Follower is one entry of an ordered follower set.
type Follower struct {
	UserID   string
	Username string
}

// normalizeProfile turns partial upstream data into a Profile. userID and
// usernameHint are the inputs the lookup was made with and fill gaps in info.
func normalizeProfile(info *UserInfo, userID, usernameHint string, tier Tier) Profile {
	return Profile{
		UserID:         firstNonEmpty(info.UserID, userID, NotAvailable),
		Username:       firstNonEmpty(info.Username, usernameHint, UnknownUsername),
		FullName:       orNA(info.FullName),
		Biography:      orNA(info.Biography),
		ExternalURL:    orNA(info.ExternalURL),
		IsPrivate:      info.IsPrivate,
		IsVerified:     info.IsVerified,
		IsBusiness:     info.IsBusiness,
		PostsCount:     countOf(info.PostsCount),
		FollowersCount: countOf(info.FollowersCount),
		FollowingCount: countOf(info.FollowingCount),
		Tier:           tier,
	}
}

// minimalProfile is the total last-resort record built only from known inputs.
func minimalProfile(userID, usernameHint string) Profile {
	return normalizeProfile(&UserInfo{}, userID, usernameHint, TierFallback)
}

func orNA(s string) string { return firstNonEmpty(s, NotAvailable) }

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
