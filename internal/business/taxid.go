package business

import (
	"fmt"
	"strings"
)

// TaxIDKind distinguishes an individual (CPF) from a company (CNPJ).
type TaxIDKind string

const (
	KindIndividual TaxIDKind = "individual"
	KindCompany    TaxIDKind = "company"
)

// NormalizeTaxID strips punctuation and classifies the identifier by digit count:
// 11 digits is a CPF, 14 a CNPJ. Check digits are not verified.
func NormalizeTaxID(raw string) (string, TaxIDKind, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", RequiredField("cpf/cnpj")
	}
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '/' || r == ' ':
		default:
			return "", "", fmt.Errorf("%w: unexpected character %q", ErrInvalidTaxID, r)
		}
	}
	digits := b.String()
	switch len(digits) {
	case 11:
		return digits, KindIndividual, nil
	case 14:
		return digits, KindCompany, nil
	default:
		return "", "", fmt.Errorf("%w: %d digits", ErrInvalidTaxID, len(digits))
	}
}
