package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sort"
	"strings"

	"atomvideo/internal/config"
)

// Profile is the identity a provider returns after a successful code exchange.
type Profile struct {
	Provider  string
	ID        string
	Email     string
	Name      string
	Login     string
	AvatarURL string
}

// Strategy is one OAuth provider integration.
type Strategy interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// Registry holds the strategies enabled at startup.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry indexes strategies by name.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Name()] = s
	}
	return r
}

// NewRegistryFromConfig enables every provider whose client credentials are set.
// Callback URLs are rooted at cfg.APIURL.
func NewRegistryFromConfig(cfg *config.Config) *Registry {
	var list []Strategy
	if cfg.GoogleClientID != "" {
		list = append(list, NewGoogleStrategy(cfg.GoogleClientID, cfg.GoogleClientSecret, callbackURL(cfg.APIURL, ProviderGoogle)))
	}
	if cfg.GitHubClientID != "" {
		list = append(list, NewGitHubStrategy(cfg.GitHubClientID, cfg.GitHubClientSecret, callbackURL(cfg.APIURL, ProviderGitHub)))
	}
	return NewRegistry(list...)
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, error) {
	if r != nil {
		if s, ok := r.strategies[strings.ToLower(name)]; ok {
			return s, nil
		}
	}
	return nil, ErrUnknownProvider
}

// Names lists the enabled providers in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewState returns an unguessable OAuth state value.
func NewState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func callbackURL(apiURL, provider string) string {
	return strings.TrimRight(apiURL, "/") + "/auth/" + provider + "/callback"
}
