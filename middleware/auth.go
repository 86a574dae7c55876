package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compoundhabits/habits/models"
	"github.com/compoundhabits/habits/utils"
)

const (
	// ContextOwnerKey is the key used to store the authenticated tenant in Gin context.
	ContextOwnerKey = "owner_id"
	// ContextTokenKey stores the raw session token.
	ContextTokenKey = "token"
	// ContextClaimsKey stores the parsed *utils.Claims.
	ContextClaimsKey = "claims"
	// SessionCookie is the cookie the OAuth callback stores the session token in.
	SessionCookie = "habits_session"
)

// AuthRequired ensures the request is authenticated via JWT, taken from the
// Authorization header or, failing that, the session cookie.
func AuthRequired(tokens *utils.TokenManager, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, code, msg := bearerToken(ctx)
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}

		if blacklist.IsRevoked(ctx.Request.Context(), tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := tokens.ParseToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		ctx.Set(ContextOwnerKey, claims.Owner())
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// OwnerFrom returns the tenant stored by AuthRequired.
func OwnerFrom(ctx *gin.Context) (models.OwnerID, bool) {
	v, ok := ctx.Get(ContextOwnerKey)
	if !ok {
		return 0, false
	}
	owner, ok := v.(models.OwnerID)
	return owner, ok && owner.Valid()
}

// ClaimsFrom returns the token and claims stored by AuthRequired.
func ClaimsFrom(ctx *gin.Context) (string, *utils.Claims, bool) {
	token := ctx.GetString(ContextTokenKey)
	v, ok := ctx.Get(ContextClaimsKey)
	if !ok || token == "" {
		return "", nil, false
	}
	claims, ok := v.(*utils.Claims)
	return token, claims, ok
}

func bearerToken(ctx *gin.Context) (string, int, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		if c, err := ctx.Cookie(SessionCookie); err == nil && c != "" {
			return c, 0, ""
		}
		return "", 40101, "authorization header missing"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", 40102, "invalid authorization header format"
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", 40103, "empty bearer token"
	}
	return tokenString, 0, ""
}
