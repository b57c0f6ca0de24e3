package controllers

import (
	"errors"
	"strconv"
	"time"

	"secom/models"
	"secom/tools"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jinzhu/gorm"
)

// accessClaims carrega o id do usuário em "uid" além dos claims registrados.
type accessClaims struct {
	UID int64 `json:"uid"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	return []byte(conf.Security.JwtSecret)
}

func accessTTL() time.Duration {
	minutes := conf.Security.AccessTTLMinutes
	if minutes <= 0 {
		minutes = 24 * 60
	}
	return time.Duration(minutes) * time.Minute
}

func refreshTTL() time.Duration {
	days := conf.Security.RefreshTTLDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

func signAccessToken(user models.User, now time.Time) (string, time.Time, error) {
	exp := now.Add(accessTTL())
	claims := accessClaims{
		UID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    "secom",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret())
	return signed, exp, err
}

// parseAccessToken valida assinatura/expiração e devolve o uid.
func parseAccessToken(raw string) (int64, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(clock),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, err
	}
	if claims.UID <= 0 {
		return 0, errors.New("token sem uid")
	}
	return claims.UID, nil
}

// issueRefreshToken grava apenas o hash e devolve o token em texto (uma única vez).
func issueRefreshToken(db *gorm.DB, userID int64, now time.Time) (string, error) {
	raw := tools.RandomToken(32)
	exp := now.Add(refreshTTL())
	rt := models.RefreshToken{
		UserID:    userID,
		TokenHash: tools.EncryptTextSHA512(raw),
		ExpiresAt: &exp,
	}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return raw, nil
}

func revokeAllUserRefreshTokens(db *gorm.DB, userID int64, now time.Time) error {
	return db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", now).Error
}

type TokenPair struct {
	AccessToken        string `json:"access_token"`
	AccessExpiresAt    int64  `json:"access_expires_at"`     // unix seconds
	AccessExpiresAtISO string `json:"access_expires_at_iso"` // RFC3339
	RefreshToken       string `json:"refresh_token"`
}

func issueTokenPair(db *gorm.DB, user models.User, now time.Time) (TokenPair, error) {
	access, exp, err := signAccessToken(user, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := issueRefreshToken(db, user.ID, now)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:        access,
		AccessExpiresAt:    exp.Unix(),
		AccessExpiresAtISO: exp.UTC().Format(time.RFC3339),
		RefreshToken:       refresh,
	}, nil
}
