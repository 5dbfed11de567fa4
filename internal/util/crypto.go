package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	tokenBytes = 32

	// PairingCodeChars excludes O, I, 0 and 1 so codes survive being read off a screen.
	PairingCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	pairingCodeLen   = 8
	screenIDLen      = 12
)

func GenerateToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// HashPairingCode hashes the normalized form of a code, so "abcd-efgh" and
// "ABCDEFGH" produce the same digest.
func HashPairingCode(code string) string {
	return HashToken(NormalizePairingCode(code))
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func MaskCode(code string) string {
	if len(code) <= 4 {
		return "****"
	}
	return code[:4] + "-****"
}

// GeneratePairingCode returns an 8 character code rendered as XXXX-XXXX.
func GeneratePairingCode() (string, error) {
	raw, err := randomChars(pairingCodeLen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", raw[:4], raw[4:]), nil
}

// GenerateScreenID returns an identifier of the form SCR-XXXX-XXXX-XXXX.
func GenerateScreenID() (string, error) {
	raw, err := randomChars(screenIDLen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SCR-%s-%s-%s", raw[:4], raw[4:8], raw[8:]), nil
}

func NormalizePairingCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer("-", "", " ", "").Replace(code)
}

func randomChars(n int) (string, error) {
	chars := []byte(PairingCodeChars)
	max := big.NewInt(int64(len(chars)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		out[i] = chars[idx.Int64()]
	}
	return string(out), nil
}
