// Package token signs and verifies the compact HS256 session tokens shared by
// the auth service and the gateway. Nothing here performs I/O: a token
// carries everything needed to authenticate its bearer.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"petromanage/internal/model"
)

const (
	claimSubject  = "sub"
	claimUserID   = "userId"
	claimRole     = "role"
	claimName     = "name"
	claimIssuedAt = "iat"
	claimExpires  = "exp"
)

// MinSecretLength is the shortest HMAC-SHA256 key accepted, in bytes.
const MinSecretLength = 32

var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithJSONNumber(),
	jwt.WithoutClaimsValidation(),
)

// Encode serializes claims into header.payload.signature. The output depends
// only on claims and secret, so equal inputs give byte-identical tokens.
func Encode(claims model.Claims, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token: signing secret is empty")
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		claimSubject:  claims.Email,
		claimUserID:   claims.UserID,
		claimRole:     claims.Role,
		claimName:     claims.Name,
		claimIssuedAt: claims.IssuedAt.Unix(),
		claimExpires:  claims.ExpiresAt.Unix(),
	}).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Decode verifies the signature of raw and returns its claims. It fails with
// model.ErrTokenMalformed when raw is not a three-part token carrying every
// required claim, and with model.ErrTokenSignature when the signature does
// not verify under secret. Expiry is not checked here.
func Decode(raw string, secret []byte) (model.Claims, error) {
	parsed, err := parser.Parse(raw, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
			return model.Claims{}, fmt.Errorf("%w: %w", model.ErrTokenSignature, err)
		}
		return model.Claims{}, fmt.Errorf("%w: %w", model.ErrTokenMalformed, err)
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return model.Claims{}, fmt.Errorf("%w: unexpected claims type", model.ErrTokenMalformed)
	}

	return claimsFromMap(claimsMap)
}

func claimsFromMap(m jwt.MapClaims) (model.Claims, error) {
	var claims model.Claims
	var err error

	if claims.Email, err = stringClaim(m, claimSubject); err != nil {
		return model.Claims{}, err
	}
	if claims.Role, err = stringClaim(m, claimRole); err != nil {
		return model.Claims{}, err
	}
	if claims.Name, err = stringClaim(m, claimName); err != nil {
		return model.Claims{}, err
	}
	if claims.UserID, err = intClaim(m, claimUserID); err != nil {
		return model.Claims{}, err
	}

	iat, err := intClaim(m, claimIssuedAt)
	if err != nil {
		return model.Claims{}, err
	}
	exp, err := intClaim(m, claimExpires)
	if err != nil {
		return model.Claims{}, err
	}
	claims.IssuedAt = time.Unix(iat, 0).UTC()
	claims.ExpiresAt = time.Unix(exp, 0).UTC()

	return claims, nil
}

func stringClaim(m jwt.MapClaims, key string) (string, error) {
	raw, exists := m[key]
	if !exists {
		return "", fmt.Errorf("%w: missing %q claim", model.ErrTokenMalformed, key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q claim is not a string", model.ErrTokenMalformed, key)
	}
	return value, nil
}

func intClaim(m jwt.MapClaims, key string) (int64, error) {
	raw, exists := m[key]
	if !exists {
		return 0, fmt.Errorf("%w: missing %q claim", model.ErrTokenMalformed, key)
	}
	number, ok := raw.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: %q claim is not a number", model.ErrTokenMalformed, key)
	}
	value, err := number.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %q claim is not an integer", model.ErrTokenMalformed, key)
	}
	return value, nil
}
