// Package auth resolves bearer tokens against Keycloak and reads user
// records through the admin API.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	apperrors "greencrew/internal/common/errors"
)

// Identity is the caller resolved from an access token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// User is a Keycloak admin API user record.
type User struct {
	ID            string `json:"id,omitempty"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Username      string `json:"username"`
	Enabled       bool   `json:"enabled"`
	EmailVerified bool   `json:"emailVerified"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type userInfo struct {
	Sub               string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string, timeout time.Duration) *KeycloakClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (k *KeycloakClient) realmURL(path string) string {
	return fmt.Sprintf("%s/realms/%s/%s", k.baseURL, k.realm, path)
}

// Identify resolves an access token through the OpenID Connect userinfo
// endpoint. A rejected token is an AUTHENTICATION_ERROR; an unreachable or
// failing provider is an IDENTITY_PROVIDER_ERROR.
func (k *KeycloakClient) Identify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, apperrors.NewAuthenticationError("missing bearer token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.realmURL("protocol/openid-connect/userinfo"), nil)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewIdentityProviderError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.NewAuthenticationError("token rejected by identity provider")
	case resp.StatusCode != http.StatusOK:
		return nil, k.statusError("userinfo", resp)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, apperrors.NewIdentityProviderError(fmt.Errorf("decode userinfo: %w", err))
	}
	if info.Sub == "" {
		return nil, apperrors.NewAuthenticationError("token has no subject")
	}
	return &Identity{ID: info.Sub, Email: info.Email}, nil
}

// getAccessToken returns a client-credentials token, cached until it expires.
func (k *KeycloakClient) getAccessToken(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.accessToken != "" && time.Now().Before(k.tokenExpiry) {
		return k.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.realmURL("protocol/openid-connect/token"), strings.NewReader(data.Encode()))
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewIdentityProviderError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", k.statusError("token", resp)
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", apperrors.NewIdentityProviderError(fmt.Errorf("decode token response: %w", err))
	}

	// Refresh slightly early so a token never expires mid-request.
	k.accessToken = tokenResp.AccessToken
	k.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - 10*time.Second)
	return k.accessToken, nil
}

// GetUser reads a user through the admin API.
func (k *KeycloakClient) GetUser(ctx context.Context, userID string) (*User, error) {
	token, err := k.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	userURL := fmt.Sprintf("%s/admin/realms/%s/users/%s", k.baseURL, k.realm, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userURL, nil)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewIdentityProviderError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.NewNotFoundError("user", userID)
	case resp.StatusCode != http.StatusOK:
		return nil, k.statusError("get user", resp)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, apperrors.NewIdentityProviderError(fmt.Errorf("decode user: %w", err))
	}
	return &user, nil
}

func (k *KeycloakClient) statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := apperrors.NewIdentityProviderError(fmt.Errorf("keycloak %s returned %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body))))
	err.Retryable = isTransientHTTPError(resp.StatusCode)
	return err
}

func isTransientHTTPError(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
