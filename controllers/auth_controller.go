package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/compoundhabits/habits/middleware"
	"github.com/compoundhabits/habits/store"
	"github.com/compoundhabits/habits/utils"
)

const oauthStateTTL = 10 * time.Minute

// AuthController handles third-party login and the session lifecycle.
type AuthController struct {
	store        *store.Store
	tokens       *utils.TokenManager
	blacklist    *utils.TokenBlacklist
	states       *utils.StateStore
	providers    map[string]*OAuthProvider
	secureCookie bool
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(st *store.Store, tokens *utils.TokenManager, blacklist *utils.TokenBlacklist,
	states *utils.StateStore, providers map[string]*OAuthProvider, secureCookie bool) *AuthController {
	return &AuthController{
		store:        st,
		tokens:       tokens,
		blacklist:    blacklist,
		states:       states,
		providers:    providers,
		secureCookie: secureCookie,
	}
}

func (a *AuthController) provider(ctx *gin.Context) (*OAuthProvider, bool) {
	name := strings.ToLower(ctx.Param("provider"))
	p, ok := a.providers[name]
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40004, "unsupported or unconfigured provider: "+name)
		return nil, false
	}
	return p, true
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	p, ok := a.provider(ctx)
	if !ok {
		return
	}

	state := uuid.NewString()
	if err := a.states.Save(ctx.Request.Context(), state, oauthStateTTL); err != nil {
		utils.Sugar.Errorw("save oauth state", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to start login")
		return
	}

	url := p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	p, ok := a.provider(ctx)
	if !ok {
		return
	}
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !a.states.Consume(ctx.Request.Context(), state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	token, err := p.Config.Exchange(ctx.Request.Context(), code)
	if err != nil {
		utils.Sugar.Warnw("oauth exchange failed", "provider", p.Name, "err", err)
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	identity, err := p.FetchIdentity(ctx.Request.Context(), token)
	if err != nil {
		if errors.Is(err, errEmailNotVerified) {
			utils.Error(ctx, http.StatusForbidden, 40301, "a verified email address is required")
			return
		}
		utils.Sugar.Warnw("oauth identity fetch failed", "provider", p.Name, "err", err)
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to fetch user profile")
		return
	}

	user, err := a.store.EnsureUser(ctx.Request.Context(), identity)
	if err != nil {
		utils.Sugar.Errorw("persist oauth user", "provider", p.Name, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50006, "failed to persist user")
		return
	}

	jwtToken, expiresAt, err := a.tokens.GenerateToken(user)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	a.setSessionCookie(ctx, jwtToken, int(time.Until(expiresAt).Seconds()))
	utils.Sugar.Infow("user logged in", "user_id", user.ID, "provider", user.Provider)
	utils.Success(ctx, gin.H{"token": jwtToken, "user": user})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token, claims, ok := middleware.ClaimsFrom(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "unauthorized")
		return
	}

	expiresAt := time.Now().Add(a.tokens.TTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := a.blacklist.Revoke(ctx.Request.Context(), token, expiresAt); err != nil {
		utils.Sugar.Errorw("revoke token", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50007, "failed to log out")
		return
	}

	a.setSessionCookie(ctx, "", -1)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	owner, ok := requireOwner(ctx)
	if !ok {
		return
	}

	user, err := a.store.GetUser(ctx.Request.Context(), uint(owner))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "user not found")
			return
		}
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

func (a *AuthController) setSessionCookie(ctx *gin.Context, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", a.secureCookie, true)
}
