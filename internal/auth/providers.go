package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// GoogleStrategy signs users in with Google OpenID Connect userinfo.
type GoogleStrategy struct {
	Config      *oauth2.Config
	UserInfoURL string
}

func NewGoogleStrategy(clientID, clientSecret, redirectURL string) *GoogleStrategy {
	return &GoogleStrategy{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		UserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
	}
}

func (*GoogleStrategy) Name() string { return ProviderGoogle }

func (g *GoogleStrategy) AuthCodeURL(state string) string {
	return g.Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *GoogleStrategy) Exchange(ctx context.Context, code string) (*Profile, error) {
	tok, err := g.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google: exchange code: %w", err)
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, g.Config.Client(ctx, tok), g.UserInfoURL, &info); err != nil {
		return nil, fmt.Errorf("google: fetch profile: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("google: profile without subject")
	}

	p := &Profile{
		Provider:  ProviderGoogle,
		ID:        info.Sub,
		Name:      info.Name,
		AvatarURL: info.Picture,
	}
	if info.EmailVerified {
		p.Email = info.Email
	}
	return p, nil
}

// GitHubStrategy signs users in with the GitHub REST API.
type GitHubStrategy struct {
	Config  *oauth2.Config
	APIBase string
}

func NewGitHubStrategy(clientID, clientSecret, redirectURL string) *GitHubStrategy {
	return &GitHubStrategy{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		APIBase: "https://api.github.com",
	}
}

func (*GitHubStrategy) Name() string { return ProviderGitHub }

func (g *GitHubStrategy) AuthCodeURL(state string) string {
	return g.Config.AuthCodeURL(state)
}

func (g *GitHubStrategy) Exchange(ctx context.Context, code string) (*Profile, error) {
	tok, err := g.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github: exchange code: %w", err)
	}
	client := g.Config.Client(ctx, tok)

	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, g.APIBase+"/user", &user); err != nil {
		return nil, fmt.Errorf("github: fetch profile: %w", err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("github: profile without id")
	}

	email := user.Email
	if email == "" {
		// Private emails are only listed through /user/emails.
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, g.APIBase+"/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					email = e.Email
					break
				}
			}
		}
	}

	return &Profile{
		Provider:  ProviderGitHub,
		ID:        strconv.FormatInt(user.ID, 10),
		Email:     email,
		Name:      user.Name,
		Login:     user.Login,
		AvatarURL: user.AvatarURL,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, dest any) error {
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
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
