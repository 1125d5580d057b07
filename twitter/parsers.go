package twitter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go-followgraph"
)

// parseUser parses the UserByScreenName and UserByRestId GraphQL responses,
// which share the data.user.result shape.
func parseUser(body []byte) (*TwitterUser, error) {
	var raw struct {
		Data struct {
			User *struct {
				Result *userResult `json:"result"`
			} `json:"user"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	if raw.Data.User == nil || raw.Data.User.Result == nil {
		if len(raw.Errors) > 0 {
			return nil, fmt.Errorf("twitter API error: %s", raw.Errors[0].Message)
		}
		return nil, fmt.Errorf("empty user result: %w", followgraph.ErrNotFound)
	}
	return parseUserResult(*raw.Data.User.Result)
}

// parseUserList parses a Followers response page.
func parseUserList(body []byte) ([]*TwitterUser, string, error) {
	var raw struct {
		Data struct {
			User struct {
				Result struct {
					Timeline struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, "", fmt.Errorf("unmarshal user list: %w", err)
	}
	users, cursor := extractUsersFromTimeline(raw.Data.User.Result.Timeline.Timeline)
	return users, cursor, nil
}

// --- Timeline types ---

type timelineObj struct {
	Instructions []timelineInstruction `json:"instructions"`
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
	Entry   *timelineEntry  `json:"entry"`
}

type timelineEntry struct {
	EntryID   string          `json:"entryId"`
	SortIndex string          `json:"sortIndex"`
	Content   timelineContent `json:"content"`
}

type timelineContent struct {
	EntryType   string          `json:"entryType"`
	TypeName    string          `json:"__typename"`
	ItemContent json.RawMessage `json:"itemContent"`
	Value       string          `json:"value"`
	CursorType  string          `json:"cursorType"`
}

type userResult struct {
	TypeName string `json:"__typename"`
	ID       string `json:"id"`
	RestID   string `json:"rest_id"`
	Core     struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
		CreatedAt  string `json:"created_at"`
	} `json:"core"`
	Legacy struct {
		Name            string `json:"name"`
		ScreenName      string `json:"screen_name"`
		FollowersCount  int    `json:"followers_count"`
		FriendsCount    int    `json:"friends_count"`
		StatusesCount   int    `json:"statuses_count"`
		ListedCount     int    `json:"listed_count"`
		CreatedAt       string `json:"created_at"`
		Verified        bool   `json:"verified"`
		Protected       bool   `json:"protected"`
		Description     string `json:"description"`
		URL             string `json:"url"`
		ProfileImageURL string `json:"profile_image_url_https"`
		Entities        struct {
			URL struct {
				URLs []struct {
					ExpandedURL string `json:"expanded_url"`
				} `json:"urls"`
			} `json:"url"`
		} `json:"entities"`
	} `json:"legacy"`
	Privacy struct {
		Protected bool `json:"protected"`
	} `json:"privacy"`
	Professional *struct {
		ProfessionalType string `json:"professional_type"`
	} `json:"professional"`
	IsBlueVerified bool `json:"is_blue_verified"`
}

// --- Extraction helpers ---

func extractUsersFromTimeline(tl timelineObj) ([]*TwitterUser, string) {
	var users []*TwitterUser
	var nextCursor string

	for _, instruction := range tl.Instructions {
		entries := instruction.Entries
		if instruction.Entry != nil {
			entries = append(entries, *instruction.Entry)
		}
		for _, entry := range entries {
			if entry.Content.EntryType == "TimelineTimelineCursor" || entry.Content.TypeName == "TimelineTimelineCursor" {
				if entry.Content.CursorType == "Bottom" || strings.Contains(entry.EntryID, "cursor-bottom") {
					nextCursor = entry.Content.Value
				}
				continue
			}
			if entry.Content.ItemContent == nil {
				continue
			}
			var item struct {
				TypeName    string `json:"__typename"`
				UserResults struct {
					Result userResult `json:"result"`
				} `json:"user_results"`
			}
			if err := json.Unmarshal(entry.Content.ItemContent, &item); err != nil {
				continue
			}
			if item.TypeName != "TimelineUser" {
				continue
			}
			u, err := parseUserResult(item.UserResults.Result)
			if err != nil {
				slog.Debug("skip user parse error", slog.Any("error", err))
				continue
			}
			users = append(users, u)
		}
	}
	return users, nextCursor
}

const twitterTimeLayout = "Mon Jan 02 15:04:05 +0000 2006"

func parseUserResult(r userResult) (*TwitterUser, error) {
	if r.TypeName == "UserUnavailable" {
		return nil, fmt.Errorf("user unavailable (suspended or restricted): %w", followgraph.ErrNotFound)
	}
	if r.RestID == "" {
		return nil, fmt.Errorf("empty user rest_id (typename=%s): %w", r.TypeName, followgraph.ErrNotFound)
	}
	var createdAt time.Time
	if raw := firstNonEmpty(r.Legacy.CreatedAt, r.Core.CreatedAt); raw != "" {
		if t, err := time.Parse(twitterTimeLayout, raw); err == nil {
			createdAt = t
		}
	}
	url := r.Legacy.URL
	if urls := r.Legacy.Entities.URL.URLs; len(urls) > 0 && urls[0].ExpandedURL != "" {
		url = urls[0].ExpandedURL
	}
	bio := strings.TrimSpace(r.Legacy.Description)
	return &TwitterUser{
		ID:          r.RestID,
		Handle:      firstNonEmpty(r.Legacy.ScreenName, r.Core.ScreenName),
		DisplayName: firstNonEmpty(r.Legacy.Name, r.Core.Name),
		Bio:         bio,
		URL:         url,
		Followers:   r.Legacy.FollowersCount,
		Following:   r.Legacy.FriendsCount,
		TweetCount:  r.Legacy.StatusesCount,
		ListedCount: r.Legacy.ListedCount,
		CreatedAt:   createdAt,
		IsVerified:  r.Legacy.Verified || r.IsBlueVerified,
		IsProtected: r.Legacy.Protected || r.Privacy.Protected,
		IsBusiness:  r.Professional != nil && strings.EqualFold(r.Professional.ProfessionalType, "Business"),
		HasAvatar:   r.Legacy.ProfileImageURL != "" && !strings.Contains(r.Legacy.ProfileImageURL, "default_profile"),
		HasBio:      bio != "",
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
