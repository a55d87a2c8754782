package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
)

// MaxImageBytes is the upload size limit enforced locally before any
// network call.
const MaxImageBytes = 5 << 20

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// APIClient calls the HTTP collaborators that sit next to the push
// transport: image upload, remote reveal and logout. It never mutates client
// state; callers convert failures into notices. No timeout is imposed here,
// the caller's context governs.
type APIClient struct {
	base   string
	http   *http.Client
	token  func() string
	logger *slog.Logger
}

// NewAPIClient builds a client for the server at base. token is consulted
// per request so a refreshed credential is picked up without rebuilding the
// client.
func NewAPIClient(base string, token func() string, logger *slog.Logger) *APIClient {
	return &APIClient{
		base:   base,
		http:   &http.Client{},
		token:  token,
		logger: logger,
	}
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
	Message  string `json:"message"`
}

// UploadImage validates and uploads an image, returning the reference URI
// the server stored it under. Size and type violations are rejected locally
// as ValidationErrors without touching the network.
func (c *APIClient) UploadImage(ctx context.Context, filename, mimeType string, size int64, r io.Reader) (string, error) {
	if size > MaxImageBytes {
		return "", NewValidationError("image", "exceeds the 5MB size limit")
	}
	if _, ok := allowedImageTypes[mimeType]; !ok {
		return "", NewValidationError("image", fmt.Sprintf("unsupported type %s", mimeType))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copy image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/upload/image", &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res uploadResponse
	if err := c.do(req, &res); err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("upload rejected: %s", res.Message)
	}
	return res.ImageURL, nil
}

type revealRequest struct {
	EncryptedMessage string `json:"encryptedMessage"`
	Password         string `json:"password"`
}

type revealResponse struct {
	Success          bool   `json:"success"`
	DecryptedMessage string `json:"decryptedMessage"`
	Message          string `json:"message"`
}

// RevealRemote asks the server to reveal an obfuscated message. The server
// is the authoritative judge of whether the password matched; a reported
// mismatch surfaces as ErrRevealFailed and the original token stays intact
// for retry.
func (c *APIClient) RevealRemote(ctx context.Context, token, password string) (string, error) {
	if password == "" {
		return "", ErrInvalidKey
	}
	raw, err := json.Marshal(revealRequest{EncryptedMessage: token, Password: password})
	if err != nil {
		return "", fmt.Errorf("marshal reveal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/decrypt", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build reveal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var res revealResponse
	if err := c.do(req, &res); err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("%w: %s", ErrRevealFailed, res.Message)
	}
	return res.DecryptedMessage, nil
}

// Logout tells the server to drop the session. It is best-effort and
// idempotent; the caller wipes local credentials regardless of the outcome.
func (c *APIClient) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	return c.do(req, nil)
}

func (c *APIClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token())
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned %d", ErrAuth, req.URL.Path, resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: server error %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
