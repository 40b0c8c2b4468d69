package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/opencourse-api/internal/utils"
)

const tokenLeeway = 30 * time.Second

var errMissingSubject = errors.New("token subject missing")

// JWTProtected validates HMAC signed bearer tokens and stores the caller's id
// and role in the user_id and user_role locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(tokenLeeway),
	)
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}

	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing or malformed")
		}

		claims := jwt.MapClaims{}
		token, err := parser.ParseWithClaims(tokenString, claims, keyFunc)
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		userID, role, err := identityFromClaims(claims)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		c.Locals("user_id", userID)
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	header = strings.TrimSpace(header)
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// identityFromClaims reads the user id from sub, user_id or id and the role
// from role or the first entry of roles.
func identityFromClaims(claims jwt.MapClaims) (uint, string, error) {
	var userID uint
	for _, key := range []string{"sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if id, err := parseSubject(value); err == nil {
				userID = id
				break
			}
		}
	}
	if userID == 0 {
		return 0, "", errMissingSubject
	}

	for _, key := range []string{"role", "roles"} {
		if role := roleClaim(claims[key]); role != "" {
			return userID, role, nil
		}
	}
	return userID, "", nil
}

func parseSubject(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v <= 0 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("invalid subject %v", v)
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil || parsed == 0 {
			return 0, fmt.Errorf("invalid subject %q", v)
		}
		return uint(parsed), nil
	default:
		return 0, fmt.Errorf("unsupported subject type %T", value)
	}
}

func roleClaim(value interface{}) string {
	switch v := value.(type) {
	case string:
		return normalizeRoleValue(v)
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				if role := normalizeRoleValue(str); role != "" {
					return role
				}
			}
		}
	}
	return ""
}
