package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"secom/config"
	"secom/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withClock(t *testing.T, now time.Time) {
	t.Helper()
	prev := clock
	clock = func() time.Time { return now }
	t.Cleanup(func() { clock = prev })
}

func TestAccessTokenRoundTrip(t *testing.T) {
	Configure(config.Default(), Services{})
	now := time.Now().Truncate(time.Second)
	withClock(t, now)

	signed, exp, err := signAccessToken(models.User{ID: 42}, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), exp)

	uid, err := parseAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)

	withClock(t, exp.Add(time.Minute))
	_, err = parseAccessToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAccessTokenRejectsOtherSecret(t *testing.T) {
	conf := config.Default()
	conf.Security.JwtSecret = "outro"
	Configure(conf, Services{})
	t.Cleanup(func() { Configure(config.Default(), Services{}) })

	now := time.Now()
	signed, _, err := signAccessToken(models.User{ID: 1}, now)
	require.NoError(t, err)

	Configure(config.Default(), Services{})
	_, err = parseAccessToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = parseAccessToken("nao-e-um-jwt")
	assert.Error(t, err)
}

func TestRespondDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		code int
	}{
		{models.ErrMotivoObrigatorio, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: widget 0", models.ErrLayoutInvalido), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: aberta -> respondida", models.ErrTransicaoInvalida), http.StatusConflict},
		{models.ErrVersaoConflitante, http.StatusConflict},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{errors.New("conexão perdida"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		RespondDomainError(c, tc.err)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}
}

func TestAllowAIPerUser(t *testing.T) {
	conf := config.Default()
	conf.OpenAI.RequestsPerMinute = 2
	Configure(conf, Services{})
	t.Cleanup(func() { Configure(config.Default(), Services{}) })

	assert.True(t, allowAI(1))
	assert.True(t, allowAI(1))
	assert.False(t, allowAI(1))
	assert.True(t, allowAI(2))

	resetAILimiters()
	assert.True(t, allowAI(1))
}
