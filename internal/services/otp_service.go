package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	otpMin = 1000
	otpMax = 9999
)

// OTPService generates 4-digit codes and hashes them with a server secret.
type OTPService struct {
	secret string
}

func NewOTPService(secret string) *OTPService {
	return &OTPService{secret: secret}
}

// GenerateOTP returns a uniformly random code in 1000..9999.
func (s *OTPService) GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}

func (s *OTPService) Hash(code string) string {
	return HashOTP(code, s.secret)
}

func (s *OTPService) Validate(candidate, storedHash string) bool {
	return ValidateOTP(candidate, storedHash, s.secret)
}

// HashOTP is the hex SHA-256 of code followed by secret.
// Changing it invalidates every pending code.
func HashOTP(code, secret string) string {
	sum := sha256.Sum256([]byte(code + secret))
	return hex.EncodeToString(sum[:])
}

func ValidateOTP(candidate, storedHash, secret string) bool {
	got := HashOTP(candidate, secret)
	return subtle.ConstantTimeCompare([]byte(got), []byte(storedHash)) == 1
}
