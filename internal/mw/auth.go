package mw

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"fleet-admin-console/internal/model"
)

const userKey = "fleet.user"

// TokenRegistry maps opaque bearer tokens to user ids. Tokens expire after
// the configured TTL.
type TokenRegistry struct {
	store *cache.Cache
	ttl   time.Duration
}

// NewTokenRegistry creates a registry whose tokens live for ttl.
func NewTokenRegistry(ttl time.Duration) *TokenRegistry {
	return &TokenRegistry{
		store: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

// Issue creates a token for userID.
func (r *TokenRegistry) Issue(userID int64) string {
	token := uuid.NewString()
	r.store.Set(token, userID, r.ttl)
	return token
}

// Lookup returns the user id behind token.
func (r *TokenRegistry) Lookup(token string) (int64, bool) {
	v, found := r.store.Get(token)
	if !found {
		return 0, false
	}
	return v.(int64), true
}

// Revoke forgets a single token.
func (r *TokenRegistry) Revoke(token string) {
	r.store.Delete(token)
}

// RevokeUser forgets every token issued to userID.
func (r *TokenRegistry) RevokeUser(userID int64) {
	for token, item := range r.store.Items() {
		if id, ok := item.Object.(int64); ok && id == userID {
			r.store.Delete(token)
		}
	}
}

// UserLookup resolves a user id to the current account.
type UserLookup func(ctx context.Context, id int64) (*model.User, error)

// Authenticate rejects requests without a live bearer token with 401. The
// account is re-read on every request so role changes and deletions apply
// immediately.
func Authenticate(tokens *TokenRegistry, lookup UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		userID, ok := tokens.Lookup(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		user, err := lookup(c.Request.Context(), userID)
		if err != nil {
			tokens.Revoke(token)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// RequireRole rejects authenticated users without role with 403.
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok || user.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the account set by Authenticate.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok
}
