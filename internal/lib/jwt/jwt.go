package jwt

import (
	"fmt"
	"time"

	"aperture_studio/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

// NewShareToken выпускает подписанный токен для клиентской ссылки на
// галерею. Токен несет id гранта, клиента и галереи; проверку подписи
// делает транспортный слой.
func NewShareToken(grant models.AccessGrant, secret string, duration time.Duration) (string, error) {
	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["grant_id"] = grant.ID.String()
	claims["client_id"] = grant.ClientID.String()
	claims["gallery_id"] = grant.GalleryID.String()
	claims["access_type"] = string(grant.AccessType)
	claims["exp"] = time.Now().Add(duration).Unix()

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseShareToken проверяет подпись и возвращает claims токена
func ParseShareToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
