package server

import (
	"crypto/subtle"
	"net/url"
	"time"

	"atomvideo/internal/auth"
	"atomvideo/internal/middleware"
	"atomvideo/internal/models"
	"atomvideo/internal/observability"

	"github.com/gofiber/fiber/v2"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

// OAuthRedirect handles GET /auth/:provider
// @Summary Start OAuth login
// @Description Redirects to the provider's consent page
// @Tags oauth
// @Param provider path string true "google or github"
// @Success 302
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/{provider} [get]
func (s *Server) OAuthRedirect(c *fiber.Ctx) error {
	strategy, err := s.oauth.Get(c.Params("provider"))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("OAuth provider"))
	}

	state, err := auth.NewState()
	if err != nil {
		return respondError(c, err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(strategy.AuthCodeURL(state), fiber.StatusFound)
}

// ListOAuthProviders handles GET /api/auth/providers
// @Summary Enabled OAuth providers
// @Tags oauth
// @Produce json
// @Success 200 {object} object{providers=[]string}
// @Router /auth/providers [get]
func (s *Server) ListOAuthProviders(c *fiber.Ctx) error {
	names := s.oauth.Names()
	if names == nil {
		names = []string{}
	}
	return c.JSON(fiber.Map{"providers": names})
}

// OAuthCallback handles GET /auth/:provider/callback. Every outcome ends in a
// redirect to the frontend: a token on success, the error page otherwise.
// @Summary OAuth callback
// @Tags oauth
// @Param provider path string true "google or github"
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by the redirect"
// @Success 302
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/{provider}/callback [get]
func (s *Server) OAuthCallback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	strategy, err := s.oauth.Get(provider)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("OAuth provider"))
	}
	ctx := c.UserContext()

	fail := func(reason string, err error) error {
		attrs := []any{"provider", provider, "reason", reason}
		if err != nil {
			attrs = append(attrs, "error", err)
		}
		middleware.Logger.WarnContext(ctx, "oauth login failed", attrs...)
		observability.OAuthLogins.WithLabelValues(strategy.Name(), "error").Inc()
		return c.Redirect(s.config.FrontendURL+"/auth/oauth-error", fiber.StatusFound)
	}

	expected := c.Cookies(oauthStateCookie)
	c.ClearCookie(oauthStateCookie)

	if denied := c.Query("error"); denied != "" {
		return fail("provider_denied", nil)
	}
	state := c.Query("state")
	if state == "" || expected == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		return fail("state_mismatch", nil)
	}
	code := c.Query("code")
	if code == "" {
		return fail("missing_code", nil)
	}

	profile, err := strategy.Exchange(ctx, code)
	if err != nil {
		return fail("exchange", err)
	}
	result, err := s.authService.OAuthLogin(ctx, profile)
	if err != nil {
		return fail("resolve_user", err)
	}
	if result == nil || result.User == nil || result.Token == "" {
		return fail("no_session", nil)
	}

	observability.OAuthLogins.WithLabelValues(strategy.Name(), "success").Inc()
	return c.Redirect(s.config.FrontendURL+"/auth/oauth-success?token="+url.QueryEscape(result.Token), fiber.StatusFound)
}
