// ABOUTME: Lead server access token storage
// ABOUTME: Persists the bearer token at an XDG path with restricted permissions
package sync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
)

// TokenPath returns XDG-compliant path for storing the server token.
func TokenPath() string {
	return filepath.Join(xdg.DataHome, "leadsync", "token.json")
}

// SaveToken saves the token to path, or TokenPath() when path is empty.
func SaveToken(path string, token *oauth2.Token) error {
	if path == "" {
		path = TokenPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	// Write token file with restricted permissions
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}

// LoadToken loads the token from path, or TokenPath() when path is empty.
func LoadToken(path string) (*oauth2.Token, error) {
	if path == "" {
		path = TokenPath()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return &token, nil
}
