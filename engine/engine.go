// Package engine is the contract with the external Style-Bert-VITS2
// synthesis engine and the clients that implement it.
package engine

import (
	"context"
	"errors"
)

var (
	ErrEmptyTokenizer = errors.New("tokenizer cannot be empty")
	ErrEmptyBert      = errors.New("bert model cannot be empty")
	ErrEmptyModel     = errors.New("voice model cannot be empty")
	ErrEmptyIdent     = errors.New("model ident cannot be empty")
	ErrEmptyText      = errors.New("text cannot be empty")
	ErrEmptyAudio     = errors.New("engine returned empty audio")
	ErrHolderClosed   = errors.New("holder is closed")
)

// Engine is the process-wide entry point. Init must succeed before any
// holder is created; calling it again returns the first result.
type Engine interface {
	Init(ctx context.Context) error
	NewHolder(ctx context.Context, tokenizer string, bert []byte) (Holder, error)
}

// Holder owns a tokenizer and BERT model on the engine side and the voice
// models loaded into it.
type Holder interface {
	Load(ctx context.Context, ident string, model []byte) error
	Synthesize(ctx context.Context, ident, text string) ([]byte, error)
	Close(ctx context.Context) error
}
