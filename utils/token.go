package utils

import (
	"errors"
	"fmt"
	"time"

	"civicbridge-be/models"

	"github.com/dgrijalva/jwt-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidToken = errors.New("invalid authorization token")

// Claims is what a session token asserts about its bearer.
type Claims struct {
	UserID primitive.ObjectID
	Role   models.Role
}

// Actor converts the claims into the workflow identity.
func (c Claims) Actor() models.Actor {
	return models.Actor{ID: c.UserID, Role: c.Role}
}

// GenerateToken signs an HS256 token carrying user_id, role and exp.
func GenerateToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JWT secret is not configured")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.Hex(),
		"role":    string(user.Role),
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken verifies signature and expiry and extracts the claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	rawID, _ := mapClaims["user_id"].(string)
	userID, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	role, _ := mapClaims["role"].(string)
	if !models.Role(role).IsValid() {
		return nil, ErrInvalidToken
	}
	return &Claims{UserID: userID, Role: models.Role(role)}, nil
}
