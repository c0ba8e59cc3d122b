package auth

import (
	"errors"
	"time"

	"fileshare/internal/models"
	"fileshare/internal/permissions"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer          = "fileshare"
	audienceAccess  = "access"
	audienceConfirm = "email-confirm"
	audienceReset   = "password-reset"
)

var ErrWrongPurpose = errors.New("token issued for a different purpose")

type AppClaims struct {
	UserID int64            `json:"user_id"`
	Email  string           `json:"email"`
	Role   permissions.Role `json:"role"`
	jwt.RegisteredClaims
}

// ConfirmClaims carries the address an emailed link was issued for.
type ConfirmClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func GenerateJWT(user *models.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := &AppClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audienceAccess},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}
}

func VerifyJWT(tokenString, secret string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, keyFunc(secret),
		jwt.WithAudience(audienceAccess), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}

func generateEmailToken(email, secret, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &ConfirmClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func verifyEmailToken(tokenString, secret, audience string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ConfirmClaims{}, keyFunc(secret),
		jwt.WithAudience(audience), jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenInvalidAudience) {
			return "", ErrWrongPurpose
		}
		return "", err
	}

	claims, ok := token.Claims.(*ConfirmClaims)
	if !ok || !token.Valid || claims.Email == "" {
		return "", jwt.ErrInvalidKey
	}
	return claims.Email, nil
}

func GenerateConfirmToken(email, secret string, ttl time.Duration) (string, error) {
	return generateEmailToken(email, secret, audienceConfirm, ttl)
}

// VerifyConfirmToken returns the email the token was issued for.
func VerifyConfirmToken(tokenString, secret string) (string, error) {
	return verifyEmailToken(tokenString, secret, audienceConfirm)
}

func GenerateResetToken(email, secret string, ttl time.Duration) (string, error) {
	return generateEmailToken(email, secret, audienceReset, ttl)
}

func VerifyResetToken(tokenString, secret string) (string, error) {
	return verifyEmailToken(tokenString, secret, audienceReset)
}
