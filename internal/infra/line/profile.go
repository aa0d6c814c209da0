// Package line verifies LINE access tokens against the LINE profile API.
package line

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hairstudio/internal/domain"
)

const DefaultProfileURL = "https://api.line.me/v2/profile"

var ErrInvalidToken = errors.New("line: invalid access token")

// Profile is the subset of the LINE profile response we rely on.
type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl"`
	Language    string `json:"language"`
}

// StatusError carries an unexpected LINE API status so callers can echo it.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("line: profile api returned status %d", e.Status)
}

type Verifier struct {
	profileURL string
	httpClient *http.Client
}

func NewVerifier(profileURL string, client *http.Client) *Verifier {
	if strings.TrimSpace(profileURL) == "" {
		profileURL = DefaultProfileURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{profileURL: profileURL, httpClient: client}
}

// Profile resolves the owner of accessToken. A rejected token is reported
// as *domain.AuthError wrapping ErrInvalidToken.
func (v *Verifier) Profile(ctx context.Context, accessToken string) (*Profile, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, &domain.ValidationError{Field: "accessToken", Reason: "is required"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.profileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("line: profile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &domain.AuthError{Reason: "invalid access token", Err: ErrInvalidToken}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("line: decode profile: %w", err)
	}
	if strings.TrimSpace(profile.UserID) == "" {
		return nil, errors.New("line: profile has no userId")
	}
	return &profile, nil
}
