package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher for new password hashes
var DefaultHasher PasswordHasher = BcryptHasher{}

// Bcrypt password hasher
// Used for hashes starting with $2a$, $2b$ or $2y$ and for plaintext passwords hashed at start
type BcryptHasher struct{}

func (h BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func (h BcryptHasher) Compare(hashedPassword string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
