package auth

import "golang.org/x/crypto/bcrypt"

func HashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyPassword(plain, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// HashPIN hashes the 4-digit transaction PIN. Same primitive as the
// login password, kept separate so PIN policy can diverge later.
func HashPIN(pin string) (string, error) {
	return HashPassword(pin)
}

func VerifyPIN(plain, hash string) error {
	return VerifyPassword(plain, hash)
}
