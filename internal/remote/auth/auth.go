// Package auth provides the OAuth2 credential provider plexdrive uses to
// authenticate against the remote API: an interactive, out-of-band
// authorization-code flow on `init`, and transparent token refresh
// thereafter via golang.org/x/oauth2.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// outOfBandRedirectURL asks Google to display the authorization code for
// the user to copy/paste, rather than requiring a local HTTP callback
// server — the same interactive flow plexdrive has always used for init.
const outOfBandRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

// TokenSource implements remote.CredentialProvider on top of an OAuth2
// client-id/secret pair, persisting its refresh token to tokenFile.
type TokenSource struct {
	cfg       *oauth2.Config
	tokenFile string

	mu       sync.Mutex
	src      oauth2.TokenSource
	lastSave string
}

// New constructs a TokenSource for the given application credentials. The
// scopes passed to Token are ignored in favor of the scopes baked in at
// AuthCodeURL time, mirroring how a real OAuth2 refresh token is already
// bound to a fixed scope set.
func New(clientID, clientSecret, tokenFile string, scopes []string) *TokenSource {
	return &TokenSource{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  outOfBandRedirectURL,
			Scopes:       scopes,
		},
		tokenFile: tokenFile,
	}
}

// AuthCodeURL returns the URL the user should visit to authorize plexdrive.
func (t *TokenSource) AuthCodeURL() string {
	return t.cfg.AuthCodeURL("plexdrive", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange redeems the authorization code the user pasted back, persisting
// the resulting token to disk.
func (t *TokenSource) Exchange(ctx context.Context, code string) error {
	tok, err := t.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("auth: exchanging authorization code: %w", err)
	}
	return t.saveToken(tok)
}

// Token implements remote.CredentialProvider.
func (t *TokenSource) Token(ctx context.Context, _ []string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.src == nil {
		tok, err := t.loadToken()
		if err != nil {
			return "", fmt.Errorf("auth: loading token: %w", err)
		}
		t.src = oauth2.ReuseTokenSource(tok, t.cfg.TokenSource(ctx, tok))
	}

	tok, err := t.src.Token()
	if err != nil {
		return "", fmt.Errorf("auth: refreshing token: %w", err)
	}

	// ReuseTokenSource only calls through to a real refresh near expiry, but
	// it returns the cached token on every other call too; only touch disk
	// when the access token actually changed so a streaming read doesn't
	// rewrite token.json on every chunk fetch.
	if tok.AccessToken != t.lastSave {
		if err := t.saveToken(tok); err != nil {
			return "", err
		}
		t.lastSave = tok.AccessToken
	}

	return tok.AccessToken, nil
}

func (t *TokenSource) loadToken() (*oauth2.Token, error) {
	f, err := os.Open(t.tokenFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", t.tokenFile, err)
	}
	return &tok, nil
}

func (t *TokenSource) saveToken(tok *oauth2.Token) error {
	f, err := os.OpenFile(t.tokenFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("writing %q: %w", t.tokenFile, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tok)
}
