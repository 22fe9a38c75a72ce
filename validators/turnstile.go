package validators

import (
	"context"
	"errors"
	"log"

	"github.com/9ssi7/turnstile"
)

var (
	ErrTokenRequired = errors.New("token is required")
	ErrTokenInvalid  = errors.New("token_not_valid")
	ErrVerification  = errors.New("internal_server_error")
)

type Verifier struct {
	Secret    string
	TestToken string
	Release   bool
}

// Enabled reports whether submissions must carry a turnstile token.
func (v Verifier) Enabled() bool {
	return v.Secret != ""
}

func (v Verifier) Verify(ctx context.Context, token string, ip string) error {
	if !v.Enabled() {
		return nil
	}
	if token == "" {
		log.Println("Token is required")
		return ErrTokenRequired
	}
	if !v.Release && v.TestToken != "" && token == v.TestToken {
		log.Println("Test token used")
		return nil
	}

	srv := turnstile.New(turnstile.Config{
		Secret: v.Secret,
	})
	ok, err := srv.Verify(ctx, token, ip)
	if err != nil {
		log.Println("Verification error:", err)
		return ErrVerification
	}
	if !ok {
		log.Println("Token not valid")
		return ErrTokenInvalid
	}
	return nil
}
