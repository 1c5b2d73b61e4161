package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	xerrors "github.com/SukhvirKooner/Louder/shared/utils/errors"
)

func randomCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil) // 10^digits
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}

func formatPurpose(purpose string) string {
	p := strings.ReplaceAll(purpose, "_", " ")
	return cases.Title(language.English).String(p)
}

// cleanEmail trims and lower-cases raw. The format check is deliberately
// weak: an '@' and a '.' are enough.
func cleanEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", xerrors.ErrEmailRequired
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return "", xerrors.ErrInvalidEmailFormat
	}
	return email, nil
}
