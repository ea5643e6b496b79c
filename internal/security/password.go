package security

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a host account password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a password against its stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashBypassSecret hashes a game's QR bypass secret for storage. The raw
// secret only ever lives inside the printed QR code.
func HashBypassSecret(secret string) (string, error) {
	return HashPassword(secret)
}

// CheckBypassSecret verifies a presented bypass secret against the stored
// hash.
func CheckBypassSecret(secret, hash string) bool {
	if secret == "" || hash == "" {
		return false
	}
	return CheckPassword(secret, hash)
}
