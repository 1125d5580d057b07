package twitter

import (
	"errors"
	"testing"

	"github.com/anatolykoptev/go-followgraph"
)

func TestParseUser(t *testing.T) {
	body := `{
		"data": {
			"user": {
				"result": {
					"__typename": "User",
					"id": "UXNlcjoxMjM0NQ==",
					"rest_id": "12345",
					"legacy": {
						"name": "Test User",
						"screen_name": "testuser",
						"followers_count": 100,
						"friends_count": 50,
						"statuses_count": 200,
						"listed_count": 5,
						"created_at": "Mon Jan 02 15:04:05 +0000 2020",
						"verified": false,
						"protected": true,
						"description": "Hello world",
						"url": "https://t.co/abc",
						"entities": {"url": {"urls": [{"expanded_url": "https://example.com"}]}},
						"profile_image_url_https": "https://pbs.twimg.com/profile_images/123/photo.jpg"
					},
					"professional": {"professional_type": "Business"},
					"is_blue_verified": true
				}
			}
		}
	}`

	user, err := parseUser([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != "12345" {
		t.Fatalf("expected ID 12345, got %s", user.ID)
	}
	if user.Handle != "testuser" {
		t.Fatalf("expected handle testuser, got %s", user.Handle)
	}
	if user.DisplayName != "Test User" {
		t.Fatalf("expected name Test User, got %s", user.DisplayName)
	}
	if user.Followers != 100 || user.Following != 50 || user.TweetCount != 200 {
		t.Fatalf("unexpected counters %d/%d/%d", user.Followers, user.Following, user.TweetCount)
	}
	if user.URL != "https://example.com" {
		t.Fatalf("expected expanded url, got %s", user.URL)
	}
	if user.CreatedAt.Year() != 2020 {
		t.Fatalf("expected 2020 creation date, got %v", user.CreatedAt)
	}
	if !user.IsVerified {
		t.Fatal("expected verified (blue)")
	}
	if !user.IsProtected {
		t.Fatal("expected protected")
	}
	if !user.IsBusiness {
		t.Fatal("expected business account")
	}
	if !user.HasAvatar {
		t.Fatal("expected has avatar")
	}
	if !user.HasBio {
		t.Fatal("expected has bio")
	}
}

func TestParseUser_CoreFields(t *testing.T) {
	body := `{"data":{"user":{"result":{
		"__typename": "User",
		"rest_id": "7",
		"core": {"name": "Core Name", "screen_name": "corehandle"},
		"privacy": {"protected": true},
		"legacy": {"profile_image_url_https": "https://abs.twimg.com/sticky/default_profile_images/default_profile.png"}
	}}}}`

	user, err := parseUser([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if user.Handle != "corehandle" || user.DisplayName != "Core Name" {
		t.Fatalf("expected core fields, got %q %q", user.Handle, user.DisplayName)
	}
	if !user.IsProtected {
		t.Fatal("expected protected from privacy block")
	}
	if user.HasAvatar {
		t.Fatal("default profile image should not count as avatar")
	}
	if user.IsBusiness {
		t.Fatal("expected non-business account")
	}
}

func TestParseUser_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unavailable", `{"data":{"user":{"result":{"__typename":"UserUnavailable","rest_id":""}}}}`},
		{"empty rest id", `{"data":{"user":{"result":{"__typename":"User","rest_id":""}}}}`},
		{"no result", `{"data":{"user":{}}}`},
		{"no user", `{"data":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseUser([]byte(tt.body))
			if !errors.Is(err, followgraph.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestParseUser_APIError(t *testing.T) {
	_, err := parseUser([]byte(`{"errors":[{"message":"Something broke"}]}`))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, followgraph.ErrNotFound) {
		t.Fatal("API error should not read as not found")
	}
}

func TestParseUserList(t *testing.T) {
	body := `{
		"data": {
			"user": {
				"result": {
					"timeline": {
						"timeline": {
							"instructions": [
								{"type": "TimelineClearCache"},
								{
									"type": "TimelineAddEntries",
									"entries": [
										{
											"entryId": "user-1",
											"content": {
												"entryType": "TimelineTimelineItem",
												"itemContent": {
													"__typename": "TimelineUser",
													"user_results": {"result": {"__typename": "User", "rest_id": "1", "legacy": {"screen_name": "alice"}}}
												}
											}
										},
										{
											"entryId": "user-2",
											"content": {
												"entryType": "TimelineTimelineItem",
												"itemContent": {
													"__typename": "TimelineUser",
													"user_results": {"result": {"__typename": "UserUnavailable"}}
												}
											}
										},
										{
											"entryId": "user-3",
											"content": {
												"entryType": "TimelineTimelineItem",
												"itemContent": {
													"__typename": "TimelineUser",
													"user_results": {"result": {"__typename": "User", "rest_id": "3", "legacy": {"screen_name": "Bob"}}}
												}
											}
										},
										{
											"entryId": "cursor-top-1",
											"content": {"entryType": "TimelineTimelineCursor", "cursorType": "Top", "value": "TOP"}
										},
										{
											"entryId": "cursor-bottom-1",
											"content": {"entryType": "TimelineTimelineCursor", "cursorType": "Bottom", "value": "NEXT"}
										}
									]
								}
							]
						}
					}
				}
			}
		}
	}`

	users, cursor, err := parseUserList([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if cursor != "NEXT" {
		t.Fatalf("expected bottom cursor NEXT, got %q", cursor)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users (unavailable skipped), got %d", len(users))
	}
	if users[0].Handle != "alice" || users[1].Handle != "Bob" {
		t.Fatalf("unexpected order: %s, %s", users[0].Handle, users[1].Handle)
	}
}

func TestParseUserList_Empty(t *testing.T) {
	users, cursor, err := parseUserList([]byte(`{"data":{"user":{"result":{"timeline":{"timeline":{"instructions":[]}}}}}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 0 || cursor != "" {
		t.Fatalf("expected empty page, got %d users cursor %q", len(users), cursor)
	}

	if _, _, err := parseUserList([]byte(`{invalid`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
