package service

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"petromanage/internal/model"
)

const DefaultBcryptCost = 12

func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", model.WithMessage(model.ErrInvalidInput, "Password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(hash), nil
}
