package platform

import (
	"fmt"
	"net/url"
)

// Endpoints derives service URLs from the platform's configured base URL.
// WebSocket endpoints map the scheme http→ws / https→wss and scope the
// session with a projectId query parameter.
type Endpoints struct {
	baseURL string
}

// NewEndpoints creates an Endpoints for the given http(s) base URL.
func NewEndpoints(baseURL string) *Endpoints {
	return &Endpoints{baseURL: baseURL}
}

// CollabURL returns the collaboration socket URL for a project.
// The connection carries no auth token; the upstream client attaches
// none either.
func (e *Endpoints) CollabURL(projectID string) (string, error) {
	return e.wsURL("/ws/collaboration", projectID)
}

// TerminalURL returns the terminal socket URL for a project.
func (e *Endpoints) TerminalURL(projectID string) (string, error) {
	return e.wsURL("/ws/terminal", projectID)
}

// FileURL returns the file API URL for a path within a project.
func (e *Endpoints) FileURL(projectID, relPath string) (string, error) {
	u, err := url.Parse(e.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u.Path = fmt.Sprintf("/api/projects/%s/files", projectID)
	q := u.Query()
	q.Set("path", relPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (e *Endpoints) wsURL(path, projectID string) (string, error) {
	u, err := url.Parse(e.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}
	u.Path = path
	q := u.Query()
	q.Set("projectId", projectID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
