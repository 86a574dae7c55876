package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/compoundhabits/habits/config"
	"github.com/compoundhabits/habits/store"
)

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	githubUserURL     = "https://api.github.com/user"
	githubEmailsURL   = "https://api.github.com/user/emails"
)

var errEmailNotVerified = errors.New("provider did not return a verified email")

// OAuthProvider is a configured login provider.
type OAuthProvider struct {
	Name   string
	Config *oauth2.Config
	// UserURL returns the profile; EmailsURL is only used by GitHub.
	UserURL   string
	EmailsURL string
}

// OAuthProviders builds the providers that have client credentials configured.
func OAuthProviders(cfg config.AppConfig) map[string]*OAuthProvider {
	out := map[string]*OAuthProvider{}
	base := strings.TrimRight(cfg.OAuthRedirectBase, "/")
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		out["github"] = &OAuthProvider{
			Name: "github",
			Config: &oauth2.Config{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", base),
				Scopes:       []string{"read:user", "user:email"},
				Endpoint:     github.Endpoint,
			},
			UserURL:   githubUserURL,
			EmailsURL: githubEmailsURL,
		}
	}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		out["google"] = &OAuthProvider{
			Name: "google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", base),
				Scopes:       []string{"openid", "profile", "email"},
				Endpoint:     google.Endpoint,
			},
			UserURL: googleUserInfoURL,
		}
	}
	return out
}

// FetchIdentity resolves the logged-in account behind token. Only accounts with
// a verified email are accepted.
func (p *OAuthProvider) FetchIdentity(ctx context.Context, token *oauth2.Token) (store.Identity, error) {
	client := p.Config.Client(ctx, token)
	switch p.Name {
	case "github":
		return p.fetchGitHub(ctx, client)
	case "google":
		return p.fetchGoogle(ctx, client)
	default:
		return store.Identity{}, fmt.Errorf("unsupported provider: %s", p.Name)
	}
}

func (p *OAuthProvider) fetchGoogle(ctx context.Context, client *http.Client) (store.Identity, error) {
	var payload struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, client, p.UserURL, &payload); err != nil {
		return store.Identity{}, fmt.Errorf("google user info: %w", err)
	}
	if payload.Email == "" || !payload.EmailVerified {
		return store.Identity{}, errEmailNotVerified
	}
	return store.Identity{
		Provider:  p.Name,
		Subject:   payload.Sub,
		Email:     payload.Email,
		Name:      fallback(payload.Name, payload.Email),
		AvatarURL: payload.Picture,
	}, nil
}

func (p *OAuthProvider) fetchGitHub(ctx context.Context, client *http.Client) (store.Identity, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, p.UserURL, &payload); err != nil {
		return store.Identity{}, fmt.Errorf("github user info: %w", err)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, p.EmailsURL, &emails); err != nil {
		return store.Identity{}, fmt.Errorf("github emails: %w", err)
	}
	var email string
	for _, e := range emails {
		if e.Primary && e.Verified {
			email = e.Email
			break
		}
	}
	if email == "" {
		return store.Identity{}, errEmailNotVerified
	}

	return store.Identity{
		Provider:  p.Name,
		Subject:   strconv.FormatInt(payload.ID, 10),
		Email:     email,
		Name:      fallback(payload.Name, payload.Login),
		AvatarURL: payload.AvatarURL,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
