package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/e-code/agent/internal/shared/errors"
)

// Client is the REST client for the E-Code platform file API. WebSocket
// endpoint derivation lives on the embedded Endpoints.
type Client struct {
	*Endpoints

	httpc  *http.Client
	token  string
	logger *zap.Logger
}

// NewClient creates a platform client. The bearer token may be empty;
// requests are then sent unauthenticated.
func NewClient(baseURL, token string, httpc *http.Client, logger *zap.Logger) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Endpoints: NewEndpoints(baseURL),
		httpc:     httpc,
		token:     token,
		logger:    logger.Named("platform-client"),
	}
}

// UploadFile writes a project file's content at the given relative path.
func (c *Client) UploadFile(ctx context.Context, projectID, relPath string, content []byte) error {
	u, err := c.FileURL(projectID, relPath)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	return c.do(req, relPath)
}

// DeleteFile removes the project file at the given relative path.
func (c *Client) DeleteFile(ctx context.Context, projectID, relPath string) error {
	u, err := c.FileURL(projectID, relPath)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	return c.do(req, relPath)
}

func (c *Client) do(req *http.Request, relPath string) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperrors.Unavailable(fmt.Sprintf("platform unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	c.logger.Warn("platform file request failed",
		zap.String("method", req.Method),
		zap.String("path", relPath),
		zap.Int("status", resp.StatusCode),
	)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Unauthorized(string(body))
	case http.StatusNotFound:
		return apperrors.NotFound("file " + relPath)
	case http.StatusBadRequest:
		return apperrors.BadRequest(string(body))
	case http.StatusTooManyRequests:
		return apperrors.TooManyRequests(string(body))
	default:
		return apperrors.Internal(
			fmt.Sprintf("platform returned status %d", resp.StatusCode), nil)
	}
}
