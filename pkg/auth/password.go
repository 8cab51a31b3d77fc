package auth

import (
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

var bcryptHashPattern = regexp.MustCompile(`^\$2[aby]\$`)

// IsBcryptHash reports whether value looks like a bcrypt hash. Accounts
// imported from before hashing was introduced store the plain password.
func IsBcryptHash(value string) bool {
	return bcryptHashPattern.MatchString(value)
}

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
