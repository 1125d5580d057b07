package twitter

import "fmt"

const (
	twitterBase   = "https://x.com/i/api/graphql"
	twitterAPIURL = "https://api.twitter.com"
)

// BearerToken is the public web-app bearer token sent with every request.
const BearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

// Operation names used as endpoint keys, rate-limit buckets and metric labels.
const (
	OpUserByScreenName = "UserByScreenName"
	OpUserByRestID     = "UserByRestId"
	OpFollowers        = "Followers"
)

// Endpoint holds the operation ID, name, and per-operation feature flags.
type Endpoint struct {
	ID       string
	Name     string
	Features map[string]any
}

// URL returns the full URL for this endpoint.
func (e Endpoint) URL() string {
	return fmt.Sprintf("%s/%s/%s", twitterBase, e.ID, e.Name)
}

// EndpointURL returns the URL for a named operation, or an error if unknown.
func EndpointURL(operation string) (string, error) {
	ep, ok := Endpoints[operation]
	if !ok {
		return "", fmt.Errorf("unknown operation: %s", operation)
	}
	return ep.URL(), nil
}

// Endpoints maps operation names to their current GraphQL IDs and feature flags.
var Endpoints = map[string]Endpoint{
	OpUserByScreenName: {ID: "1VOOyvKkiI3FMmkeDNxM9A", Name: OpUserByScreenName, Features: userFeatures()},
	OpUserByRestID:     {ID: "WJ7rCtezBVT6nk6VM5R8Bw", Name: OpUserByRestID, Features: userFeatures()},
	OpFollowers:        {ID: "Elc_-qTARceHpztqhI9PQA", Name: OpFollowers, Features: timelineFeatures()},
}

// requiresAuth returns true for endpoints that need a real authenticated account.
func requiresAuth(operation string) bool {
	return operation == OpFollowers
}

// userFeatures are the flags the profile lookups accept.
func userFeatures() map[string]any {
	return map[string]any{
		"hidden_profile_subscriptions_enabled":                              true,
		"profile_label_improvements_pcf_label_in_post_enabled":              false,
		"responsive_web_graphql_exclude_directive_enabled":                  true,
		"responsive_web_graphql_skip_user_profile_image_extensions_enabled": false,
		"responsive_web_graphql_timeline_navigation_enabled":                true,
		"rweb_tipjar_consumption_enabled":                                   true,
		"subscriptions_verification_info_is_identity_verified_enabled":      true,
		"subscriptions_verification_info_verified_since_enabled":            true,
		"verified_phone_label_enabled":                                      false,
		"highlights_tweets_tab_ui_enabled":                                  true,
		"creator_subscriptions_tweet_preview_api_enabled":                   true,
	}
}

// timelineFeatures are the flags the user-list timelines accept.
func timelineFeatures() map[string]any {
	f := userFeatures()
	for k, v := range map[string]any{
		"articles_preview_enabled":                                                false,
		"c9s_tweet_anatomy_moderator_badge_enabled":                               true,
		"communities_web_enable_tweet_community_results_fetch":                    true,
		"freedom_of_speech_not_reach_fetch_enabled":                               true,
		"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
		"longform_notetweets_consumption_enabled":                                 true,
		"longform_notetweets_inline_media_enabled":                                true,
		"longform_notetweets_rich_text_read_enabled":                              true,
		"responsive_web_edit_tweet_api_enabled":                                   true,
		"responsive_web_enhance_cards_enabled":                                    false,
		"responsive_web_twitter_article_tweet_consumption_enabled":                true,
		"standardized_nudges_misinfo":                                             true,
		"tweet_awards_web_tipping_enabled":                                        false,
		"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
		"view_counts_everywhere_api_enabled":                                      true,
	} {
		f[k] = v
	}
	return f
}
