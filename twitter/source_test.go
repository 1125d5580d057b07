package twitter

import (
	"testing"

	"github.com/anatolykoptev/go-followgraph"
)

func TestUserInfo(t *testing.T) {
	u := &TwitterUser{
		ID:          "12345",
		Handle:      "testuser",
		DisplayName: "Test User",
		Bio:         "Hello",
		URL:         "https://example.com",
		Followers:   100,
		Following:   50,
		TweetCount:  200,
		IsVerified:  true,
		IsProtected: true,
		IsBusiness:  true,
	}

	info := userInfo(u)
	if info.UserID != "12345" || info.Username != "testuser" || info.FullName != "Test User" {
		t.Fatalf("unexpected identity %+v", info)
	}
	if info.Biography != "Hello" || info.ExternalURL != "https://example.com" {
		t.Fatalf("unexpected bio/url %+v", info)
	}
	if !info.IsPrivate || !info.IsVerified || !info.IsBusiness {
		t.Fatalf("unexpected flags %+v", info)
	}
	if *info.PostsCount != 200 || *info.FollowersCount != 100 || *info.FollowingCount != 50 {
		t.Fatalf("unexpected counters %d/%d/%d", *info.PostsCount, *info.FollowersCount, *info.FollowingCount)
	}
}

func TestUserInfo_ZeroCountsAreKnown(t *testing.T) {
	info := userInfo(&TwitterUser{ID: "1", Handle: "quiet"})
	if info.FollowersCount == nil || *info.FollowersCount != 0 {
		t.Fatal("a reported zero is still a known count")
	}
	if info.FullName != "" {
		t.Fatal("missing fields stay empty for the resolver to fill")
	}
}

func TestNewSource(t *testing.T) {
	s := NewSource(&Client{cfg: ClientConfig{MaxFollowers: 25}})
	if s.maxFollowers != 25 {
		t.Fatalf("expected cap 25, got %d", s.maxFollowers)
	}
	var _ followgraph.ProfileSource = s
	var _ followgraph.FollowerSource = s
}
