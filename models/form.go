package models

import (
	"mime/multipart"
)

type FormData struct {
	Bert      *multipart.FileHeader
	Tokenizer *multipart.FileHeader
	Model     *multipart.FileHeader
	Text      string
	Token     string
}

type ProcessedFormData struct {
	Bert      []byte
	Tokenizer string
	Model     []byte
	Text      string
}
