// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Every test runs against its own SQLite file and in-memory Valkey.
package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"clomery/internal/account"
	"clomery/internal/database"
	"clomery/internal/metrics"
	"clomery/internal/middleware"
	"clomery/internal/query"
	"clomery/internal/session"
	"clomery/internal/store"
)

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	DB         *sql.DB
	Contents   *store.ContentStore
	Categories *store.CategoryStore
	Tags       *store.TagStore
	Users      *store.UserStore
	Accounts   *account.Service
	Metrics    *metrics.Metrics
	Router     http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Connect("sqlite", filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, query.SQLite))

	mr := miniredis.RunT(t)
	vk := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { vk.Close() })

	d := query.SQLite
	categories := store.NewCategoryStore(db, d)
	tags := store.NewTagStore(db, d)
	contents := store.NewContentStore(db, d, categories, tags)
	users := store.NewUserStore(db, d)
	accounts := account.NewService(db, users, session.NewStore(vk, time.Hour))
	m := metrics.New()

	env := &testEnv{
		DB:         db,
		Contents:   contents,
		Categories: categories,
		Tags:       tags,
		Users:      users,
		Accounts:   accounts,
		Metrics:    m,
	}
	env.Router = env.routes(NewContent(contents, tags, m, 10), NewCategory(categories, tags, contents, 10), NewAccount(accounts, m))
	return env
}

func (e *testEnv) routes(content *Content, category *Category, acct *Account) http.Handler {
	r := chi.NewRouter()
	r.Get("/articles", content.List)
	r.Get("/articles/{ref}", content.Get)
	r.Get("/articles/{id}/near", content.Near)
	r.Post("/articles/{id}/views", content.Views)
	r.Get("/categories", category.List)
	r.Get("/categories/{ref}", category.Get)
	r.Get("/categories/{ref}/articles", category.Articles)
	r.Get("/tags", category.Tags)
	r.Get("/tags/{name}/articles", category.TagArticles)
	r.Post("/users/signup", acct.SignUp)
	r.Post("/users/signin", acct.SignIn)
	r.Post("/users/signout", acct.SignOut)
	r.Post("/users/heartbeat", acct.HeartBeat)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireToken(e.Accounts))
		r.Post("/articles", content.Save)
		r.Post("/articles/{id}/tags", content.AttachTags)
		r.Delete("/articles/{id}/tags/{name}", content.DetachTags)
		r.Post("/categories", category.Create)
		r.Patch("/categories/{id}", category.Update)
		r.Post("/users/avatar", acct.Avatar)
	})
	return r
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.Router.ServeHTTP(rec, req)
	return rec
}

// signUp registers a user and returns its bearer credential.
func (e *testEnv) signUp(t *testing.T, name string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/users/signup", map[string]string{
		"name": name, "email": name + "@example.com", "password": "correct horse",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res struct {
		Token struct {
			ID    string `json:"id"`
			Value string `json:"value"`
		} `json:"token"`
	}
	decode(t, rec, &res)
	return res.Token.ID + "." + res.Token.Value
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorResponse
	decode(t, rec, &e)
	return e.Error
}
