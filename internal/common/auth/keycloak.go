// internal/common/auth/keycloak.go
package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"seo-offers/internal/common/errors"
	httpclient "seo-offers/internal/common/http"
	"seo-offers/internal/models"
)

// KeycloakClient is the identity provider: account creation, password
// sign-in, sign-out and bearer token validation against one realm.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	http         *httpclient.Client

	mu          sync.Mutex
	adminToken  string
	adminExpiry time.Time

	subs *subscribers
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
	RefreshToken     string `json:"refresh_token"`
	Scope            string `json:"scope"`
}

// TokenInfo holds the information returned by the token introspection endpoint.
type TokenInfo struct {
	Active      bool   `json:"active"`
	Sub         string `json:"sub,omitempty"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
	ClientID    string `json:"client_id,omitempty"`
	Exp         int64  `json:"exp,omitempty"`
	RealmAccess struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// User maps the introspected token onto the caller identity.
func (t TokenInfo) User() models.User {
	email := t.Email
	if email == "" {
		email = t.Username
	}
	return models.User{ID: t.Sub, Email: email, Roles: t.RealmAccess.Roles}
}

// Session is an established sign-in.
type Session struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id,omitempty"`
	Email        string    `json:"email"`
}

type keycloakUser struct {
	Username      string               `json:"username"`
	Email         string               `json:"email"`
	Enabled       bool                 `json:"enabled"`
	EmailVerified bool                 `json:"emailVerified"`
	Credentials   []keycloakCredential `json:"credentials"`
}

type keycloakCredential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         httpclient.NewClient(30 * time.Second),
		subs:         newSubscribers(),
	}
}

func (k *KeycloakClient) realmURL(path string) string {
	return fmt.Sprintf("%s/realms/%s%s", k.baseURL, k.realm, path)
}

// Subscribe registers fn for session state changes and returns a function
// that removes it. Events are delivered synchronously after each change.
func (k *KeycloakClient) Subscribe(fn func(Event)) (unsubscribe func()) {
	return k.subs.add(fn)
}

// SignUp creates an enabled account with a password credential and signs it in.
func (k *KeycloakClient) SignUp(ctx context.Context, email, password string) (*Session, error) {
	if err := k.ensureAdminToken(ctx); err != nil {
		return nil, errors.NewUpstreamError("keycloak", err)
	}

	user := keycloakUser{
		Username:      email,
		Email:         email,
		Enabled:       true,
		EmailVerified: false,
		Credentials:   []keycloakCredential{{Type: "password", Value: password}},
	}

	err := k.http.DoJSON(ctx, http.MethodPost,
		fmt.Sprintf("%s/admin/realms/%s/users", k.baseURL, k.realm),
		map[string]string{"Authorization": "Bearer " + k.currentAdminToken()},
		user, nil)
	if err != nil {
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
			return nil, errors.NewUserExistsError(email)
		}
		return nil, errors.NewUpstreamError("keycloak", err)
	}

	session, err := k.passwordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}

	k.subs.publish(Event{Type: EventSignedUp, Email: email, Session: session, At: time.Now().UTC()})
	return session, nil
}

// SignIn exchanges credentials for a session.
func (k *KeycloakClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	session, err := k.passwordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}

	k.subs.publish(Event{Type: EventSignedIn, Email: email, Session: session, At: time.Now().UTC()})
	return session, nil
}

// SignOut revokes the refresh token.
func (k *KeycloakClient) SignOut(ctx context.Context, refreshToken string) error {
	form := url.Values{}
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)
	form.Set("refresh_token", refreshToken)

	if err := k.http.PostForm(ctx, k.realmURL("/protocol/openid-connect/logout"), form, nil); err != nil {
		return errors.NewUpstreamError("keycloak", err)
	}

	k.subs.publish(Event{Type: EventSignedOut, At: time.Now().UTC()})
	return nil
}

// ValidateToken introspects an access token. Inactive or unknown tokens are
// reported as UNAUTHORIZED.
func (k *KeycloakClient) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.NewUnauthorizedError("missing bearer token")
	}

	form := url.Values{}
	form.Set("token", token)
	form.Set("token_type_hint", "access_token")
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)

	var info TokenInfo
	if err := k.http.PostForm(ctx, k.realmURL("/protocol/openid-connect/token/introspect"), form, &info); err != nil {
		return nil, errors.NewUpstreamError("keycloak", err)
	}

	if !info.Active {
		return nil, errors.NewUnauthorizedError("token is not active")
	}

	return &info, nil
}

// Authenticate validates the token and returns the caller identity.
func (k *KeycloakClient) Authenticate(ctx context.Context, token string) (models.User, error) {
	info, err := k.ValidateToken(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	return info.User(), nil
}

func (k *KeycloakClient) passwordGrant(ctx context.Context, email, password string) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)
	form.Set("username", email)
	form.Set("password", password)
	form.Set("scope", "openid email")

	var tok TokenResponse
	if err := k.http.PostForm(ctx, k.realmURL("/protocol/openid-connect/token"), form, &tok); err != nil {
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) &&
			(statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusBadRequest) {
			return nil, errors.NewInvalidCredentialsError()
		}
		return nil, errors.NewUpstreamError("keycloak", err)
	}

	return &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(tok.ExpiresIn) * time.Second),
		Email:        email,
	}, nil
}

// ensureAdminToken fetches a service-account token via client credentials
// and caches it until shortly before expiry.
func (k *KeycloakClient) ensureAdminToken(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.adminToken != "" && time.Now().Before(k.adminExpiry) {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", k.clientID)
	form.Set("client_secret", k.clientSecret)

	var tok TokenResponse
	if err := k.http.PostForm(ctx, k.realmURL("/protocol/openid-connect/token"), form, &tok); err != nil {
		return fmt.Errorf("client credentials grant: %w", err)
	}

	k.adminToken = tok.AccessToken
	k.adminExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - 10*time.Second)
	return nil
}

func (k *KeycloakClient) currentAdminToken() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.adminToken
}
