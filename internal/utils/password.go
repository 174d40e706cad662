package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLen = 6

func HashPassword(plain string) (string, error) {
	if len(plain) < MinPasswordLen {
		return "", errors.New("password too short")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
