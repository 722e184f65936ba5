package handlers

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// AuthMiddleware verifies the HS256 bearer token and stores its subject,
// a user id, in the echo context. Tokens must carry "sub" and "exp".
func (h *Handler) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Missing Authorization header"})
		}
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid Authorization header"})
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			return h.Secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid token"})
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid token claims"})
		}
		userID, err := uuid.Parse(sub)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: "Invalid token claims"})
		}

		c.Set(userIDKey, userID)
		return next(c)
	}
}

func currentUser(c echo.Context) uuid.UUID {
	id, _ := c.Get(userIDKey).(uuid.UUID)
	return id
}
