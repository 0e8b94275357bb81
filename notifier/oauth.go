package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/smtp"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const gmailScope = "https://mail.google.com/"

// oauthCredentials is the on-disk OAuth client and refresh token used for SMTP.
type oauthCredentials struct {
	EmailAddress string `json:"email_address"`
	ClientID     string `json:"google_client_id"`
	ClientSecret string `json:"google_client_secret"`
	RefreshToken string `json:"google_refresh_token"`
}

// LoadTokenSource reads an OAuth credential file and returns a token source
// that refreshes access tokens as needed.
func LoadTokenSource(ctx context.Context, path string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading oauth credentials: %w", err)
	}

	var creds oauthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decoding oauth credentials %s: %w", path, err)
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("oauth credentials %s: google_client_id and google_client_secret are required", path)
	}
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("oauth credentials %s: google_refresh_token is required", path)
	}

	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailScope},
	}

	return config.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken}), nil
}

// xoauth2Auth implements the XOAUTH2 SASL mechanism for net/smtp.
type xoauth2Auth struct {
	username string
	host     string
	tokens   oauth2.TokenSource
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS && !isLocalhost(server.Name) {
		return "", nil, errors.New("unencrypted connection")
	}
	if server.Name != a.host {
		return "", nil, errors.New("wrong host name")
	}

	token, err := a.tokens.Token()
	if err != nil {
		return "", nil, fmt.Errorf("fetching access token: %w", err)
	}

	resp := fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", a.username, token.AccessToken)
	return "XOAUTH2", []byte(resp), nil
}

// Next handles the server's error challenge. XOAUTH2 has no second step.
func (a *xoauth2Auth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		return nil, fmt.Errorf("xoauth2 rejected: %s", fromServer)
	}
	return nil, nil
}

func isLocalhost(name string) bool {
	return name == "localhost" || name == "127.0.0.1" || name == "::1"
}
