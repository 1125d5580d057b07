package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/pquerna/otp/totp"
)

// Login flow failures.
var (
	ErrLoginDenied     = errors.New("login denied")
	ErrCaptchaRequired = errors.New("login requires a captcha")
	ErrTOTPRequired    = errors.New("login requires a TOTP secret")
)

const (
	loginTimeout   = 3 * time.Minute
	maxLoginRounds = 10
)

// relogin clears auth credentials and performs a fresh login.
func (c *Client) relogin(acc *Account) error {
	slog.Info("attempting relogin", slog.String("user", acc.Username))

	acc.SetCredentials("", "")
	if err := os.Remove(sessionPath(c.cfg.SessionDir, acc.Username)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("remove stale session", slog.String("user", acc.Username), slog.Any("error", err))
	}

	if err := c.loadOrLogin(acc); err != nil {
		return fmt.Errorf("relogin %s: %w", acc.Username, err)
	}

	acc.Reset()
	slog.Info("relogin succeeded", slog.String("user", acc.Username))
	return nil
}

// loadOrLogin prefers a persisted session, then credentials given up front,
// then a password login.
func (c *Client) loadOrLogin(acc *Account) error {
	authToken, ct0, err := loadSession(c.cfg.SessionDir, acc.Username, c.cfg.SessionTTL)
	if err != nil {
		slog.Warn("error loading session", slog.String("user", acc.Username), slog.Any("error", err))
	}
	if authToken != "" && ct0 != "" {
		acc.SetCredentials(authToken, ct0)
		slog.Info("loaded session from disk", slog.String("user", acc.Username))
		return nil
	}

	if tok, ct0, _ := acc.Credentials(); tok != "" && ct0 != "" {
		acc.SetCredentials(tok, ct0)
		slog.Info("using provided credentials", slog.String("user", acc.Username))
		c.persist(acc)
		return nil
	}

	if acc.Password == "" {
		return fmt.Errorf("no session and no password for account %s", acc.Username)
	}

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()
	if err := c.login(ctx, acc); err != nil {
		return fmt.Errorf("login failed for %s: %w", acc.Username, err)
	}
	c.persist(acc)
	return nil
}

// subtaskInput builds the subtask_inputs entry answering one login subtask.
type subtaskInput func(acc *Account) (map[string]any, error)

func nextLink(extra map[string]any) map[string]any {
	extra["link"] = "next_link"
	return extra
}

// loginSubtasks answers the onboarding subtasks the login flow can present.
var loginSubtasks = map[string]subtaskInput{
	"LoginJsInstrumentationSubtask": func(*Account) (map[string]any, error) {
		return map[string]any{"js_instrumentation": nextLink(map[string]any{
			"response": `{"rf":{"a":"b"},"s":"s"}`,
		})}, nil
	},
	"LoginEnterUserIdentifierSSO": func(acc *Account) (map[string]any, error) {
		return map[string]any{"settings_list": nextLink(map[string]any{
			"setting_responses": []any{map[string]any{
				"key":           "user_identifier",
				"response_data": map[string]any{"text_data": map[string]any{"result": acc.Username}},
			}},
		})}, nil
	},
	"LoginEnterPassword": func(acc *Account) (map[string]any, error) {
		return map[string]any{"enter_password": nextLink(map[string]any{"password": acc.Password})}, nil
	},
	"LoginEnterAlternateIdentifierSubtask": func(acc *Account) (map[string]any, error) {
		return map[string]any{"enter_text": nextLink(map[string]any{"text": acc.Username})}, nil
	},
	"LoginTwoFactorAuthChallenge": func(acc *Account) (map[string]any, error) {
		if acc.TOTPSecret == "" {
			return nil, ErrTOTPRequired
		}
		code, err := totp.GenerateCode(acc.TOTPSecret, time.Now())
		if err != nil {
			return nil, fmt.Errorf("generate TOTP code: %w", err)
		}
		slog.Info("submitting TOTP code", slog.String("user", acc.Username))
		return map[string]any{"enter_text": nextLink(map[string]any{"text": code})}, nil
	},
}

var captchaSubtasks = map[string]bool{
	"LoginArkoseChallenge": true,
	"LoginArkoseCaptcha":   true,
	"LoginEnterRecaptcha":  true,
}

// loginDone reports whether a subtask ends the flow successfully.
func loginDone(subtaskID string) bool {
	return subtaskID == "LoginSuccessSubtask" || subtaskID == "AccountDuplicationCheck"
}

// login performs Twitter's multi-step onboarding login flow.
func (c *Client) login(ctx context.Context, acc *Account) error {
	slog.Info("logging in", slog.String("user", acc.Username))
	bc := c.clientForAccount(acc)

	guestToken, err := c.acquireGuestToken(ctx)
	if err != nil {
		return fmt.Errorf("get guest token: %w", err)
	}

	fr, err := c.flowStep(bc, guestToken, twitterAPIURL+"/1.1/onboarding/task.json?flow_name=login", []byte(loginFlowPayload))
	if err != nil {
		return fmt.Errorf("init login flow: %w", err)
	}

	for range maxLoginRounds {
		if len(fr.Subtasks) == 0 {
			break
		}
		subtaskID := fr.Subtasks[0].SubtaskID
		slog.Debug("login subtask", slog.String("user", acc.Username), slog.String("subtask", subtaskID))

		switch {
		case loginDone(subtaskID):
			return c.adoptLoginCookies(acc, bc)
		case subtaskID == "DenyLoginSubtask":
			return fmt.Errorf("%w for %s (account may be locked or disabled)", ErrLoginDenied, acc.Username)
		case captchaSubtasks[subtaskID]:
			return fmt.Errorf("%w (%s) for %s", ErrCaptchaRequired, subtaskID, acc.Username)
		}

		input := map[string]any{"action_list": nextLink(map[string]any{})}
		if answer, ok := loginSubtasks[subtaskID]; ok {
			if input, err = answer(acc); err != nil {
				return fmt.Errorf("login subtask %s for %s: %w", subtaskID, acc.Username, err)
			}
		} else {
			slog.Warn("unknown login subtask, skipping", slog.String("user", acc.Username), slog.String("subtask", subtaskID))
		}
		input["subtask_id"] = subtaskID

		payload, err := json.Marshal(map[string]any{
			"flow_token":     fr.FlowToken,
			"subtask_inputs": []any{input},
		})
		if err != nil {
			return fmt.Errorf("encode subtask %s: %w", subtaskID, err)
		}
		if fr, err = c.flowStep(bc, guestToken, twitterAPIURL+"/1.1/onboarding/task.json", payload); err != nil {
			return fmt.Errorf("login subtask %s for %s: %w", subtaskID, acc.Username, err)
		}
	}
	return c.adoptLoginCookies(acc, bc)
}

// adoptLoginCookies copies auth_token and ct0 from the client's cookie jar.
func (c *Client) adoptLoginCookies(acc *Account, bc *stealth.BrowserClient) error {
	cookie := func(name string) string {
		if v := bc.GetCookieValue(twitterAPIURL, name); v != "" {
			return v
		}
		return bc.GetCookieValue("https://twitter.com", name)
	}
	authToken := cookie("auth_token")
	if authToken == "" {
		return fmt.Errorf("login completed but no auth_token in cookies for %s", acc.Username)
	}
	ct0 := cookie("ct0")
	if ct0 == "" {
		ct0 = GenerateCT0()
	}
	acc.SetCredentials(authToken, ct0)
	slog.Info("login successful", slog.String("user", acc.Username))
	return nil
}

type flowResponse struct {
	FlowToken string `json:"flow_token"`
	Subtasks  []struct {
		SubtaskID string `json:"subtask_id"`
	} `json:"subtasks"`
}

// flowStep posts one onboarding request and decodes the next flow state.
func (c *Client) flowStep(bc *stealth.BrowserClient, guestToken, url string, payload []byte) (*flowResponse, error) {
	body, _, status, err := bc.DoWithHeaderOrder("POST", url, loginFlowHeaders(guestToken), bytes.NewReader(payload), headerOrder)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		return nil, fmt.Errorf("flow step HTTP %d: %s", status, truncateBytes(body, 300))
	}
	var fr flowResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("parse flow response: %w", err)
	}
	if fr.FlowToken == "" {
		return nil, fmt.Errorf("empty flow_token in response: %s", truncateBytes(body, 200))
	}
	return &fr, nil
}

// getGuestToken fetches a Twitter guest token.
func (c *Client) getGuestToken(bc *stealth.BrowserClient) (string, error) {
	headers := map[string]string{
		"authorization": "Bearer " + BearerToken,
		"content-type":  "application/json",
		"user-agent":    defaultUserAgent,
	}
	body, _, status, err := bc.DoWithHeaderOrder("POST", twitterAPIURL+"/1.1/guest/activate.json", headers, nil, headerOrder)
	if err != nil {
		return "", err
	}
	if status != 200 {
		return "", fmt.Errorf("guest token: HTTP %d", status)
	}
	var resp struct {
		GuestToken string `json:"guest_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if resp.GuestToken == "" {
		return "", fmt.Errorf("empty guest token in response")
	}
	return resp.GuestToken, nil
}

// acquireGuestToken fetches a fresh guest token with exponential backoff.
func (c *Client) acquireGuestToken(ctx context.Context) (string, error) {
	backoff := stealth.BackoffConfig{
		InitialWait: 2 * time.Second,
		MaxWait:     60 * time.Second,
		Multiplier:  2.0,
		JitterPct:   0.3,
	}
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff.Duration(attempt)):
			}
		}
		token, err := c.getGuestToken(c.client)
		if err == nil {
			return token, nil
		}
		lastErr = err
		slog.Warn("guest token acquisition failed", slog.Int("attempt", attempt+1), slog.Any("error", err))
	}
	return "", fmt.Errorf("acquire guest token after 3 attempts: %w", lastErr)
}

// loginFlowPayload starts flow_name=login.
const loginFlowPayload = `{"input_flow_data":{"flow_context":{"debug_overrides":{},"start_location":{"location":"splash_screen"}}},"subtask_versions":{"action_list":2,"alert_dialog":1,"app_download_cta":1,"check_logged_in_account":1,"choice_selection":3,"contacts_live_sync_permission_prompt":0,"cta":7,"email_verification":2,"end_flow":1,"enter_date":1,"enter_email":2,"enter_password":5,"enter_phone":2,"enter_recaptcha":1,"enter_text":5,"enter_username":2,"generic_urt":3,"in_app_notification":1,"interest_picker":3,"js_instrumentation":1,"menu_dialog":1,"notifications_permission_prompt":2,"open_account":2,"open_home_timeline":1,"open_link":1,"phone_verification":4,"privacy_options":1,"security_key":3,"select_avatar":4,"select_banner":2,"settings_list":7,"show_code":1,"sign_up":2,"sign_up_review":4,"tweet_selection_urt":1,"update_users":1,"upload_media":1,"user_recommendations_list":4,"user_recommendations_urt":1,"wait_spinner":3,"web_modal":1}}`
