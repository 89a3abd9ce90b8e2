package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"qareview/pkg/logger"
)

type contextKey string

const ReviewerIDKey contextKey = "reviewerID"

// Anonymous is the reviewer id used when no JWT secret is configured.
const Anonymous = "anonymous"

// ReviewerFrom returns the reviewer id stored by Auth, or Anonymous.
func ReviewerFrom(ctx context.Context) string {
	if id, ok := ctx.Value(ReviewerIDKey).(string); ok && id != "" {
		return id
	}
	return Anonymous
}

// Auth validates HMAC-signed bearer tokens and stores the "sub" claim as the
// reviewer id. An empty secret disables validation and every request runs as
// Anonymous.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				ctx := context.WithValue(r.Context(), ReviewerIDKey, Anonymous)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			// Browsers cannot set headers on WebSocket upgrades, so accept the
			// token from the query string too.
			tokenString := r.URL.Query().Get("token")
			if tokenString == "" {
				tokenString = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if tokenString == "" {
				http.Error(w, "Unauthorized: No token provided", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Sugar.Warnf("Invalid token: %v", err)
				http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Unauthorized: Could not parse token claims", http.StatusUnauthorized)
				return
			}
			reviewerID, ok := claims["sub"].(string)
			if !ok || reviewerID == "" {
				http.Error(w, "Unauthorized: Reviewer ID (sub) claim is missing or invalid", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ReviewerIDKey, reviewerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
