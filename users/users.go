package users

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is a registered resource owner. The password is stored only as a
// bcrypt hash; the TOTP secret is generated at registration and never
// rotated in scope.
type User struct {
	ID           string    `json:"id,omitempty"`       // Unique identifier for the user
	Username     string    `json:"username,omitempty"` // Unique username
	PasswordHash string    `json:"-"`                  // Hashed version of the user's password - never serialize
	OTPSecret    string    `json:"-"`                  // Base32 TOTP secret - never serialize
	OTPVerified  bool      `json:"otp_verified"`       // Whether the user has proven possession of the TOTP secret
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
