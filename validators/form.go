package validators

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/CorrelAid/sbv2_web/models"
)

const (
	FieldBert      = "bert"
	FieldTokenizer = "tokenizer"
	FieldModel     = "sbv2"
	FieldText      = "text"
)

const (
	MsgBertExtension      = "Bert Model must be an .onnx file"
	MsgTokenizerExtension = "Tokenizer must be a .json file"
	MsgModelExtension     = "Style-Bert-VITS2 Model must be a .sbv2 file"
	MsgTokenizerJSON      = "Tokenizer is not valid JSON"
	MsgFileRequired       = "file field is required"
	MsgFileEmpty          = "file is empty"
	MsgFileTooLarge       = "file size exceeds the maximum limit"
	MsgTextRequired       = "text field is required"
	MsgTextTooLong        = "text is too long"
)

type Limits struct {
	MaxFileSize  int64
	MaxTextRunes int
}

// FormError carries one message per rejected field.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid form: " + strings.Join(parts, "; ")
}

func (e *FormError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = msg
}

func ValidateProcessFormData(formData models.FormData, limits Limits) (models.ProcessedFormData, error) {
	var formErr FormError

	bert, msg := validateProcessFile(formData.Bert, ".onnx", MsgBertExtension, limits.MaxFileSize)
	if msg != "" {
		formErr.add(FieldBert, msg)
	}

	tokenizer, msg := validateProcessFile(formData.Tokenizer, ".json", MsgTokenizerExtension, limits.MaxFileSize)
	if msg == "" && !json.Valid(tokenizer) {
		msg = MsgTokenizerJSON
	}
	if msg != "" {
		formErr.add(FieldTokenizer, msg)
	}

	model, msg := validateProcessFile(formData.Model, ".sbv2", MsgModelExtension, limits.MaxFileSize)
	if msg != "" {
		formErr.add(FieldModel, msg)
	}

	text, msg := validateText(formData.Text, limits.MaxTextRunes)
	if msg != "" {
		formErr.add(FieldText, msg)
	}

	if len(formErr.Fields) > 0 {
		return models.ProcessedFormData{}, &formErr
	}

	return models.ProcessedFormData{
		Bert:      bert,
		Tokenizer: string(tokenizer),
		Model:     model,
		Text:      text,
	}, nil
}

// validateProcessFile returns the file contents, or a message describing
// why the upload was rejected.
func validateProcessFile(file *multipart.FileHeader, ext, extMsg string, maxSize int64) ([]byte, string) {
	if file == nil {
		return nil, MsgFileRequired
	}
	if !strings.HasSuffix(file.Filename, ext) {
		return nil, extMsg
	}
	if maxSize > 0 && file.Size > maxSize {
		return nil, MsgFileTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Sprintf("could not read file: %v", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Sprintf("could not read file: %v", err)
	}
	if len(data) == 0 {
		return nil, MsgFileEmpty
	}

	return data, ""
}

// validateText only trims surrounding whitespace; the engine gets the text
// as typed.
func validateText(text string, maxRunes int) (string, string) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return "", MsgTextRequired
	}
	if maxRunes > 0 && utf8.RuneCountInString(cleaned) > maxRunes {
		return "", MsgTextTooLong
	}
	return cleaned, ""
}
