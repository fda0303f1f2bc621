package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/users/signup", map[string]string{
		"name": "alice", "email": "alice@example.com", "password": "long enough",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	tests := []struct {
		name   string
		body   map[string]string
		status int
		want   string
	}{
		{"name taken", map[string]string{"name": "ALICE", "email": "a2@example.com", "password": "long enough"}, http.StatusConflict, "name already taken"},
		{"email taken", map[string]string{"name": "alice2", "email": "Alice@Example.com", "password": "long enough"}, http.StatusConflict, "email already taken"},
		{"bad email", map[string]string{"name": "bob", "email": "nope", "password": "long enough"}, http.StatusBadRequest, "email must be a valid email address"},
		{"short password", map[string]string{"name": "bob", "email": "bob@example.com", "password": "short"}, http.StatusBadRequest, "password must be at least 8 characters"},
		{"odd name", map[string]string{"name": "bob smith", "email": "bob@example.com", "password": "long enough"}, http.StatusBadRequest, "name may only contain letters and digits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/users/signup", tt.body, "")
			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.want, errorOf(t, rec))
		})
	}
}

func TestSignInHandler(t *testing.T) {
	env := newTestEnv(t)
	env.signUp(t, "carol")

	rec := env.do(t, http.MethodPost, "/users/signin", map[string]string{"name": "carol", "password": "correct horse"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		Token struct {
			ID string `json:"id"`
		} `json:"token"`
	}
	decode(t, rec, &res)
	assert.Equal(t, "carol", res.User.Name)
	assert.NotEmpty(t, res.Token.ID)

	rec = env.do(t, http.MethodPost, "/users/signin", map[string]string{"name": "carol", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid name or password", errorOf(t, rec))

	rec = env.do(t, http.MethodPost, "/users/signin", map[string]string{"name": "carol"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	const want = `
# HELP clomery_signin_total Sign-in attempts by outcome
# TYPE clomery_signin_total counter
clomery_signin_total{outcome="invalid"} 1
clomery_signin_total{outcome="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(env.Metrics.Registry(), strings.NewReader(want), "clomery_signin_total"))
}

func TestSignOutAndHeartBeat(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.signUp(t, "dave")

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/users/heartbeat", nil, "").Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPost, "/users/heartbeat", nil, bearer).Code)
	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodPost, "/users/signout", nil, bearer).Code)

	rec := env.do(t, http.MethodPost, "/users/signout", nil, bearer)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", errorOf(t, rec))
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/users/heartbeat", nil, bearer).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/articles", map[string]any{"title": "x"}, bearer).Code)
}

func TestAvatarHandler(t *testing.T) {
	env := newTestEnv(t)
	bearer := env.signUp(t, "painter")

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/users/avatar", map[string]any{"avatar": 7}, "").Code)

	rec := env.do(t, http.MethodPost, "/users/avatar", map[string]any{"avatar": 0}, bearer)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "avatar is required", errorOf(t, rec))

	rec = env.do(t, http.MethodPost, "/users/avatar", map[string]any{"avatar": 7}, bearer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var u struct {
		Name   string `json:"name"`
		Avatar *int64 `json:"avatar"`
		Group  *int64 `json:"group"`
	}
	decode(t, rec, &u)
	assert.Equal(t, "painter", u.Name)
	require.NotNil(t, u.Avatar)
	assert.Equal(t, int64(7), *u.Avatar)
	require.NotNil(t, u.Group, "the first user is an admin")
	assert.NotContains(t, rec.Body.String(), "password")
}
