package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNormalizeWhatsAppTo(t *testing.T) {
	cases := map[string]string{
		"(11) 98765-4321":   "5511987654321",
		"011 3333-4444":     "551133334444",
		"+55 21 99999-0000": "5521999990000",
	}
	for in, want := range cases {
		got, err := NormalizeWhatsAppTo(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, bad := range []string{"", "1234", "abc"} {
		_, err := NormalizeWhatsAppTo(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidateEmail("imprensa@prefeitura.sp.gov.br"))
	assert.False(t, ValidateEmail("sem-arroba"))
	assert.Empty(t, CheckPassword("senha123"))
	assert.Equal(t, "password", CheckPassword("curta1"))
	assert.Equal(t, "password", CheckPassword("somenteletras"))
	assert.Equal(t, "password", CheckPassword("12345678"))
}

func TestRandomHelpers(t *testing.T) {
	code := RandomString(8)
	assert.Len(t, code, 8)
	assert.False(t, strings.ContainsAny(code, "01IO"))
	assert.Len(t, RandomNumbers(6), 6)
	assert.Len(t, RandomToken(32), 64)
	assert.NotEqual(t, RandomToken(16), RandomToken(16))
	assert.Len(t, EncryptTextSHA512("x"), 128)
}

func TestPasswordHash(t *testing.T) {
	BcryptCost = bcrypt.MinCost
	hash, err := HashPassword("senha123")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash(hash, "senha123"))
	assert.False(t, CheckPasswordHash(hash, "outra123"))
	assert.False(t, CheckPasswordHash("", "senha123"))
}

func TestTopSimilar(t *testing.T) {
	candidates := map[int64]string{
		1: "[1,0]",
		2: "[0.8,0.2]",
		3: "[0,1]",
		4: "lixo",
		5: "[1,0]",
	}
	got := TopSimilar([]float64{1, 0}, candidates, 2, 0.5)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(5), got[1].ID)

	got = TopSimilar([]float64{1, 0}, candidates, 0, 0.5)
	assert.Len(t, got, 3)

	_, ok := CosineSimilarity([]float64{0, 0}, []float64{1, 1})
	assert.False(t, ok)

	v, err := ParseEmbedding(EncodeEmbedding([]float64{0.25, -1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, -1}, v)
	_, err = ParseEmbedding("[]")
	assert.Error(t, err)
}

func TestWhatsAppSendText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v24.0/123/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := WhatsAppClient{AccessToken: "tok", PhoneNumberID: "123", BaseURL: srv.URL + "/"}
	require.NoError(t, c.SendText(context.Background(), "5511987654321", "olá"))
	assert.Equal(t, "5511987654321", got["to"])
	assert.Equal(t, "text", got["type"])
}

func TestWhatsAppAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid"}`))
	}))
	defer srv.Close()

	c := WhatsAppClient{AccessToken: "tok", PhoneNumberID: "123", BaseURL: srv.URL}
	err := c.SendText(context.Background(), "5511987654321", "olá")
	var apiErr WhatsAppAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	err = WhatsAppClient{}.SendText(context.Background(), "x", "y")
	assert.Error(t, err)
}
