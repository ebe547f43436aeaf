// Package business holds the error taxonomy shared by every service.
//
// Services wrap the sentinels with context (fmt.Errorf("%w: ...")) and callers
// match them with errors.Is. Code maps an error to the stable string used on the wire.
package business

import (
	"errors"
	"fmt"
)

var (
	ErrRequiredField      = errors.New("required field")
	ErrMinimumLength      = errors.New("value shorter than allowed")
	ErrInvalidTaxID       = errors.New("invalid cpf/cnpj")
	ErrIncompatible       = errors.New("incompatible record")
	ErrNotFound           = errors.New("record not found")
	ErrDuplicate          = errors.New("duplicate record")
	ErrInvalidLogin       = errors.New("invalid login or password")
	ErrPasswordExpired    = errors.New("password expired")
	ErrUserLocked         = errors.New("user locked")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrPasswordDefinition = errors.New("password and confirmation do not match")
	ErrUnmapped           = errors.New("unmapped error")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrRequiredField, "required_field"},
	{ErrMinimumLength, "minimum_length"},
	{ErrInvalidTaxID, "invalid_tax_id"},
	{ErrIncompatible, "incompatible_record"},
	// invalid_login is listed before not_found: a missing login matches both.
	{ErrInvalidLogin, "invalid_login"},
	{ErrNotFound, "record_not_found"},
	{ErrDuplicate, "duplicate_record"},
	{ErrPasswordExpired, "password_expired"},
	{ErrUserLocked, "user_locked"},
	{ErrInvalidToken, "invalid_token"},
	{ErrPasswordDefinition, "password_definition"},
	{ErrUnmapped, "unmapped_error"},
}

// Code returns the wire code for err, "unmapped_error" for anything outside the taxonomy.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "unmapped_error"
}

// IsBusiness reports whether err belongs to the taxonomy (other than ErrUnmapped).
func IsBusiness(err error) bool {
	if err == nil {
		return false
	}
	for _, c := range codes {
		if c.err != ErrUnmapped && errors.Is(err, c.err) {
			return true
		}
	}
	return false
}

// Unmapped passes business errors through and wraps everything else in ErrUnmapped.
func Unmapped(err error) error {
	if err == nil || IsBusiness(err) || errors.Is(err, ErrUnmapped) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnmapped, err)
}

// RequiredField reports a missing mandatory field.
func RequiredField(field string) error {
	return fmt.Errorf("%w: %s", ErrRequiredField, field)
}

// NotFound reports a missing entity by key.
func NotFound(entity, key string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, entity, key)
}

// Duplicate reports an entity that already exists.
func Duplicate(entity, detail string) error {
	return fmt.Errorf("%w: %s %s", ErrDuplicate, entity, detail)
}

// MinimumLength reports a value under min characters.
func MinimumLength(field string, min int) error {
	return fmt.Errorf("%w: %s requires at least %d characters", ErrMinimumLength, field, min)
}
