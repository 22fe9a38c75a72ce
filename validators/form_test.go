package validators_test

import (
	"bytes"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/CorrelAid/sbv2_web/models"
	"github.com/CorrelAid/sbv2_web/validators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upload struct {
	field    string
	filename string
	content  []byte
}

// fileHeaders builds real multipart headers the way a browser submission
// would produce them.
func fileHeaders(t *testing.T, uploads ...upload) map[string]*multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, u := range uploads {
		part, err := mw.CreateFormFile(u.field, u.filename)
		require.NoError(t, err)
		_, err = part.Write(u.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	headers := map[string]*multipart.FileHeader{}
	for field, files := range form.File {
		headers[field] = files[0]
	}
	return headers
}

func validForm(t *testing.T) models.FormData {
	t.Helper()

	h := fileHeaders(t,
		upload{"bert", "deberta.onnx", []byte("onnx-bytes")},
		upload{"tokenizer", "tokenizer.json", []byte(`{"version":"1.0"}`)},
		upload{"sbv2", "voice.sbv2", []byte("sbv2-bytes")},
	)
	return models.FormData{
		Bert:      h["bert"],
		Tokenizer: h["tokenizer"],
		Model:     h["sbv2"],
		Text:      "  こんにちは  ",
	}
}

var limits = validators.Limits{MaxFileSize: 1 << 20, MaxTextRunes: 20}

func TestValidateProcessFormData_Accepts(t *testing.T) {
	t.Parallel()

	processed, err := validators.ValidateProcessFormData(validForm(t), limits)
	require.NoError(t, err)

	assert.Equal(t, []byte("onnx-bytes"), processed.Bert)
	assert.Equal(t, `{"version":"1.0"}`, processed.Tokenizer)
	assert.Equal(t, []byte("sbv2-bytes"), processed.Model)
	assert.Equal(t, "こんにちは", processed.Text)
}

func TestValidateProcessFormData_WrongExtensions(t *testing.T) {
	t.Parallel()

	h := fileHeaders(t,
		upload{"bert", "deberta.bin", []byte("x")},
		upload{"tokenizer", "tokenizer.txt", []byte("{}")},
		upload{"sbv2", "voice.safetensors", []byte("x")},
	)
	form := models.FormData{Bert: h["bert"], Tokenizer: h["tokenizer"], Model: h["sbv2"], Text: "hi"}

	_, err := validators.ValidateProcessFormData(form, limits)

	var formErr *validators.FormError
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, map[string]string{
		validators.FieldBert:      validators.MsgBertExtension,
		validators.FieldTokenizer: validators.MsgTokenizerExtension,
		validators.FieldModel:     validators.MsgModelExtension,
	}, formErr.Fields)
}

func TestValidateProcessFormData_FieldErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(t *testing.T, f *models.FormData)
		field  string
		msg    string
	}{
		{
			name:   "missing bert",
			mutate: func(_ *testing.T, f *models.FormData) { f.Bert = nil },
			field:  validators.FieldBert,
			msg:    validators.MsgFileRequired,
		},
		{
			name: "tokenizer not json",
			mutate: func(t *testing.T, f *models.FormData) {
				f.Tokenizer = fileHeaders(t, upload{"tokenizer", "tokenizer.json", []byte("{nope")})["tokenizer"]
			},
			field: validators.FieldTokenizer,
			msg:   validators.MsgTokenizerJSON,
		},
		{
			name: "empty model",
			mutate: func(t *testing.T, f *models.FormData) {
				f.Model = fileHeaders(t, upload{"sbv2", "voice.sbv2", nil})["sbv2"]
			},
			field: validators.FieldModel,
			msg:   validators.MsgFileEmpty,
		},
		{
			name: "model too large",
			mutate: func(t *testing.T, f *models.FormData) {
				f.Model = fileHeaders(t, upload{"sbv2", "voice.sbv2", bytes.Repeat([]byte("a"), 2<<20)})["sbv2"]
			},
			field: validators.FieldModel,
			msg:   validators.MsgFileTooLarge,
		},
		{
			name:   "blank text",
			mutate: func(_ *testing.T, f *models.FormData) { f.Text = "   " },
			field:  validators.FieldText,
			msg:    validators.MsgTextRequired,
		},
		{
			name:   "text too long",
			mutate: func(_ *testing.T, f *models.FormData) { f.Text = strings.Repeat("あ", 21) },
			field:  validators.FieldText,
			msg:    validators.MsgTextTooLong,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			form := validForm(t)
			tc.mutate(t, &form)

			_, err := validators.ValidateProcessFormData(form, limits)

			var formErr *validators.FormError
			require.ErrorAs(t, err, &formErr)
			assert.Equal(t, map[string]string{tc.field: tc.msg}, formErr.Fields)
		})
	}
}

func TestValidateProcessFormData_KeepsTextVerbatim(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"x<y and z>w",
		"a&lt;b",
		"<script>alert(1)</script>",
		"<b>今日は</b> a < b & c",
	} {
		form := validForm(t)
		form.Text = text

		processed, err := validators.ValidateProcessFormData(form, validators.Limits{MaxFileSize: 1 << 20, MaxTextRunes: 100})
		require.NoError(t, err, text)
		assert.Equal(t, text, processed.Text)
	}
}

func TestFormError_Error(t *testing.T) {
	t.Parallel()

	err := &validators.FormError{Fields: map[string]string{"text": "b", "bert": "a"}}
	assert.Equal(t, "invalid form: bert: a; text: b", err.Error())
}
