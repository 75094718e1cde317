package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ExportToken is a short-lived signed token that authorizes one CSV
// download over HTTP. The Token field contains the JWT string and Exp its
// UTC expiration. The token is handed to an admin inside the chat and is
// appended as a query parameter to the export URL.
type ExportToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewExportToken builds and signs an HS256 JWT that marks the bearer as
// allowed to download the report export. Claims: scope, subject (the
// requesting admin's ID), expiration and issued-at.
func NewExportToken(secret string, adminID int64, ttlMin int) (ExportToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"scope": "reports:export",
		"sub":   adminID,
		"exp":   exp.Unix(),
		"iat":   time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return ExportToken{}, err
	}
	return ExportToken{Token: signed, Exp: exp}, nil
}

// VerifyExportToken parses and validates an export token, enforcing the
// HS256 method and the reports:export scope.
func VerifyExportToken(secret, raw string) error {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || claims["scope"] != "reports:export" {
		return errors.New("invalid scope")
	}
	return nil
}
