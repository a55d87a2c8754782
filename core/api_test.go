package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPIServer struct {
	*httptest.Server
	requests atomic.Int32
	lastAuth atomic.Value
}

// newFakeAPIServer stands in for the chat server's HTTP surface: image
// upload, remote reveal and logout. Reveal accepts the password "letmein".
func newFakeAPIServer(t *testing.T) *fakeAPIServer {
	t.Helper()
	f := &fakeAPIServer{}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.requests.Add(1)
			f.lastAuth.Store(req.Header.Get("Authorization"))
			if req.Header.Get("Authorization") != "Bearer good-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/api/upload/image", func(w http.ResponseWriter, req *http.Request) {
		file, header, err := req.FormFile("image")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":  true,
			"imageUrl": "/uploads/" + header.Filename,
		})
	})
	r.Post("/api/decrypt", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			EncryptedMessage string `json:"encryptedMessage"`
			Password         string `json:"password"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body.Password != "letmein" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"message": "Invalid password",
			})
			return
		}
		plain, err := Reveal(body.EncryptedMessage, body.Password)
		if err != nil {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"message": "Malformed message",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success":          true,
			"decryptedMessage": plain,
		})
	})
	r.Post("/api/auth/logout", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

func newAPIClient(server *fakeAPIServer, token string) *APIClient {
	return NewAPIClient(server.URL, func() string { return token }, testLogger())
}

func TestUploadImage(t *testing.T) {
	server := newFakeAPIServer(t)
	client := newAPIClient(server, "good-token")

	payload := strings.NewReader("fake image bytes")
	ref, err := client.UploadImage(context.Background(), "cat.png", "image/png", 16, payload)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/cat.png", ref)
	assert.Equal(t, "Bearer good-token", server.lastAuth.Load())
}

func TestUploadImageRejectedLocally(t *testing.T) {
	server := newFakeAPIServer(t)
	client := newAPIClient(server, "good-token")

	var verr *ValidationError

	_, err := client.UploadImage(context.Background(), "huge.png", "image/png", MaxImageBytes+1, strings.NewReader(""))
	require.ErrorAs(t, err, &verr)

	_, err = client.UploadImage(context.Background(), "notes.pdf", "application/pdf", 100, strings.NewReader(""))
	require.ErrorAs(t, err, &verr)

	assert.Zero(t, server.requests.Load(), "local validation must not touch the network")
}

func TestUploadImageUnauthorized(t *testing.T) {
	server := newFakeAPIServer(t)
	client := newAPIClient(server, "bad-token")

	_, err := client.UploadImage(context.Background(), "cat.png", "image/png", 16, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrAuth)
}

func TestRevealRemote(t *testing.T) {
	server := newFakeAPIServer(t)
	client := newAPIClient(server, "good-token")

	token, err := Obfuscate("secret text", "letmein")
	require.NoError(t, err)

	plain, err := client.RevealRemote(context.Background(), token, "letmein")
	require.NoError(t, err)
	assert.Equal(t, "secret text", plain)
}

func TestRevealRemoteWrongPassword(t *testing.T) {
	server := newFakeAPIServer(t)
	client := newAPIClient(server, "good-token")

	token, err := Obfuscate("secret text", "letmein")
	require.NoError(t, err)

	_, err = client.RevealRemote(context.Background(), token, "wrong")
	assert.ErrorIs(t, err, ErrRevealFailed)
}

func TestRevealRemoteEmptyPassword(t *testing.T) {
	server := newFakeAPIServer(t)
	client := newAPIClient(server, "good-token")

	_, err := client.RevealRemote(context.Background(), "whatever", "")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.Zero(t, server.requests.Load())
}

func TestLogout(t *testing.T) {
	server := newFakeAPIServer(t)
	client := newAPIClient(server, "good-token")

	require.NoError(t, client.Logout(context.Background()))
	assert.Equal(t, int32(1), server.requests.Load())
}
