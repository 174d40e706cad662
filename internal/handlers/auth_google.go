package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/apperr"
	"github.com/Windi-Fikriyansyah/platform_be_freelance/internal/workflow"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleOAuthHandler signs users in with Google. First-time users become
// client accounts.
type GoogleOAuthHandler struct {
	Auth            *AuthHandler
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string

	// Endpoint and UserInfoURL default to Google's; tests point them elsewhere.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func (h *GoogleOAuthHandler) Enabled() bool {
	return h.GoogleClientID != "" && h.GoogleSecret != ""
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	ep := h.Endpoint
	if ep.AuthURL == "" {
		ep = google.Endpoint
	}
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     ep,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (h *GoogleOAuthHandler) tempCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.Auth.SecureCookie,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	if !h.Enabled() {
		return apperr.New(apperr.CodeNotFound, "google sign-in is not configured")
	}
	next := c.Query("next", "/")
	st := randomState(32)

	// state and next ride in short-lived cookies
	h.tempCookie(c, "oauth_state", st, 10*60)
	h.tempCookie(c, "oauth_next", next, 10*60)

	authURL := h.oauthCfg().AuthCodeURL(st, oauth2.AccessTypeOnline)
	return c.Redirect(authURL, http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	if !h.Enabled() {
		return apperr.New(apperr.CodeNotFound, "google sign-in is not configured")
	}
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return apperr.New(apperr.CodeValidation, "missing code or state")
	}
	if stCookie := c.Cookies("oauth_state"); stCookie == "" || stCookie != state {
		return apperr.New(apperr.CodeValidation, "invalid state")
	}
	next := c.Cookies("oauth_next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/"
	}

	cfg := h.oauthCfg()
	tok, err := cfg.Exchange(c.UserContext(), code)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeUnauthenticated, "failed to exchange code")
	}

	infoURL := h.UserInfoURL
	if infoURL == "" {
		infoURL = googleUserInfoURL
	}
	resp, err := cfg.Client(c.UserContext(), tok).Get(infoURL)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeUnauthenticated, "failed to fetch userinfo")
	}
	defer resp.Body.Close()

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return apperr.Wrap(err, apperr.CodeUnauthenticated, "failed to decode userinfo")
	}
	email := strings.ToLower(strings.TrimSpace(gu.Email))
	if email == "" || !gu.VerifiedEmail {
		return apperr.New(apperr.CodeUnauthenticated, "google account has no verified email")
	}

	u, err := h.Auth.Engine.UpsertExternalUser(c.UserContext(), workflow.ExternalIdentity{
		Email:    email,
		Username: strings.TrimSpace(gu.Name),
	})
	if err != nil {
		return err
	}
	if !u.IsActive {
		return c.Redirect(h.FrontendBaseURL+"/login?err="+url.QueryEscape("account disabled"), http.StatusTemporaryRedirect)
	}
	if _, err := h.Auth.setSession(c, u); err != nil {
		return err
	}

	// drop the state cookies
	h.tempCookie(c, "oauth_state", "", -1)
	h.tempCookie(c, "oauth_next", "", -1)

	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}
