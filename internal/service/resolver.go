package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"fileflow/internal/model"
	"fileflow/internal/repository"
)

// NormalizeEmail returns the case-normalized key emails are matched on.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone drops whitespace and dashes.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return r
	}, phone)
}

// Resolve finds the account registered under email, then under phone. It returns
// (nil, nil) when neither matches; an unregistered recipient is not an error.
// Inputs are expected to be normalized.
func Resolve(ctx context.Context, accounts repository.AccountRepository, email, phone string) (*model.Account, error) {
	if email != "" {
		acc, err := accounts.FindByEmail(ctx, email)
		if err == nil {
			return acc, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	if phone != "" {
		acc, err := accounts.FindByPhone(ctx, phone)
		if err == nil {
			return acc, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}
	return nil, nil
}
