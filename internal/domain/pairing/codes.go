package pairing

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	CodeLength   = 6
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// generateUniqueCode draws codes until one is not present in the store,
// giving up after attempts draws. It also reports how many draws it used.
func generateUniqueCode(ctx context.Context, repo Repository, newCode func() (string, error), attempts int) (string, int, error) {
	for i := 0; i < attempts; i++ {
		code, err := newCode()
		if err != nil {
			return "", i + 1, err
		}
		taken, err := repo.InviteCodeExists(ctx, code)
		if err != nil {
			return "", i + 1, fmt.Errorf("look up invite code: %w", err)
		}
		if !taken {
			return code, i + 1, nil
		}
	}
	return "", attempts, ErrGenerationExhausted
}

func generateCode() (string, error) {
	return randomString(CodeLength, CodeAlphabet)
}

func randomString(length int, alphabet string) (string, error) {
	max := big.NewInt(int64(len(alphabet)))

	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		builder.WriteByte(alphabet[n.Int64()])
	}

	return builder.String(), nil
}

// ValidCode reports whether code has the invite code shape.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(CodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
