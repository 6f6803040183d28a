// identity.go
// Firebase Auth implementation of the Identity contract, over the
// identitytoolkit REST surface. The admin SDK only mints tokens server-side;
// email+password sign-in for a client runs through these endpoints.

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"odyssea/models"
)

const identityToolkitURL = "https://identitytoolkit.googleapis.com/v1"

// FirebaseIdentity signs users in and out against Firebase Auth and pushes
// identity-change events to registered listeners.
type FirebaseIdentity struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client

	mu          sync.Mutex
	user        *models.AuthUser
	idToken     string
	tokenExpiry time.Time
	listeners   map[int]func(user *models.AuthUser)
	nextID      int
}

var _ Identity = (*FirebaseIdentity)(nil)

// NewFirebaseIdentity creates an identity client for a Firebase project
// web API key.
func NewFirebaseIdentity(apiKey string) *FirebaseIdentity {
	return &FirebaseIdentity{
		apiKey:     apiKey,
		endpoint:   identityToolkitURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		listeners:  map[int]func(user *models.AuthUser){},
	}
}

type identityRequest struct {
	Email             string `json:"email,omitempty"`
	Password          string `json:"password,omitempty"`
	IDToken           string `json:"idToken,omitempty"`
	DisplayName       string `json:"displayName,omitempty"`
	PhotoURL          string `json:"photoUrl,omitempty"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type identityResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl"`
	IDToken     string `json:"idToken"`
	ExpiresIn   string `json:"expiresIn"`
	Error       *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (f *FirebaseIdentity) call(ctx context.Context, action string, req identityRequest) (*identityResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &AuthError{Code: AuthCodeUnknown, Err: err}
	}

	url := fmt.Sprintf("%s/accounts:%s?key=%s", f.endpoint, action, f.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &AuthError{Code: AuthCodeUnknown, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return nil, &AuthError{Code: AuthCodeNetwork, Err: err}
	}
	defer resp.Body.Close()

	var out identityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &AuthError{Code: AuthCodeUnknown, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		msg := ""
		if out.Error != nil {
			msg = out.Error.Message
		}
		return nil, &AuthError{Code: mapIdentityError(msg), Err: fmt.Errorf("%s: %s", action, msg)}
	}
	return &out, nil
}

// mapIdentityError folds the provider's message constants into the stable
// AuthError codes the stores present to users.
func mapIdentityError(msg string) string {
	switch {
	case strings.HasPrefix(msg, "EMAIL_NOT_FOUND"),
		strings.HasPrefix(msg, "INVALID_PASSWORD"),
		strings.HasPrefix(msg, "INVALID_LOGIN_CREDENTIALS"),
		strings.HasPrefix(msg, "USER_DISABLED"):
		return AuthCodeInvalidCredentials
	case strings.HasPrefix(msg, "EMAIL_EXISTS"):
		return AuthCodeEmailInUse
	case strings.HasPrefix(msg, "WEAK_PASSWORD"):
		return AuthCodeWeakPassword
	case msg == "":
		return AuthCodeNetwork
	default:
		return AuthCodeUnknown
	}
}

// SignIn authenticates with email+password and fires the state listeners.
func (f *FirebaseIdentity) SignIn(ctx context.Context, email, password string) (*models.AuthUser, error) {
	resp, err := f.call(ctx, "signInWithPassword", identityRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, err
	}
	return f.adopt(resp), nil
}

// SignUp creates the account, then sets the display name on the fresh
// identity before anyone reads it back.
func (f *FirebaseIdentity) SignUp(ctx context.Context, name, email, password string) (*models.AuthUser, error) {
	resp, err := f.call(ctx, "signUp", identityRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, err
	}

	if name != "" {
		updated, err := f.call(ctx, "update", identityRequest{
			IDToken:           resp.IDToken,
			DisplayName:       name,
			ReturnSecureToken: true,
		})
		if err != nil {
			return nil, err
		}
		updated.LocalID = resp.LocalID
		updated.Email = resp.Email
		if updated.IDToken == "" {
			updated.IDToken = resp.IDToken
		}
		resp = updated
	}

	return f.adopt(resp), nil
}

// SignOut drops the local session and notifies listeners. There is no
// remote call to make; Firebase sessions are client-held tokens.
func (f *FirebaseIdentity) SignOut() error {
	f.mu.Lock()
	f.user = nil
	f.idToken = ""
	f.tokenExpiry = time.Time{}
	f.mu.Unlock()

	f.fireListeners(nil)
	return nil
}

// UpdatePhotoURL sets the identity's photo reference. Requires a session.
func (f *FirebaseIdentity) UpdatePhotoURL(ctx context.Context, photoURL string) error {
	f.mu.Lock()
	token := f.idToken
	f.mu.Unlock()
	if token == "" {
		return &AuthError{Code: AuthCodeUnknown, Err: fmt.Errorf("no active session")}
	}

	resp, err := f.call(ctx, "update", identityRequest{
		IDToken:           token,
		PhotoURL:          photoURL,
		ReturnSecureToken: true,
	})
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.user != nil {
		f.user.PhotoURL = photoURL
	}
	if resp.IDToken != "" {
		f.idToken = resp.IDToken
	}
	f.mu.Unlock()
	return nil
}

// OnAuthStateChanged registers a listener and immediately delivers the
// current identity to it, mirroring the mobile SDK contract.
func (f *FirebaseIdentity) OnAuthStateChanged(cb func(user *models.AuthUser)) Unsubscribe {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = cb
	current := cloneAuthUser(f.user)
	f.mu.Unlock()

	cb(current)

	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// adopt records the session from a successful provider response and fires
// the listeners with the new identity.
func (f *FirebaseIdentity) adopt(resp *identityResponse) *models.AuthUser {
	user := &models.AuthUser{
		UID:         resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoURL,
	}

	f.mu.Lock()
	f.user = user
	f.idToken = resp.IDToken
	f.tokenExpiry = parseTokenExpiry(resp.IDToken)
	f.mu.Unlock()

	f.fireListeners(cloneAuthUser(user))
	return cloneAuthUser(user)
}

func (f *FirebaseIdentity) fireListeners(user *models.AuthUser) {
	f.mu.Lock()
	cbs := make([]func(user *models.AuthUser), 0, len(f.listeners))
	for _, cb := range f.listeners {
		cbs = append(cbs, cb)
	}
	f.mu.Unlock()

	for _, cb := range cbs {
		cb(cloneAuthUser(user))
	}
}

// parseTokenExpiry pulls the exp claim out of the ID token. The token came
// straight from the issuer over TLS and the client holds no signing key, so
// an unverified parse is the correct tool here.
func parseTokenExpiry(idToken string) time.Time {
	if idToken == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// TokenValid reports whether the held ID token is still inside its expiry
// window.
func (f *FirebaseIdentity) TokenValid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idToken != "" && time.Now().Before(f.tokenExpiry)
}

func cloneAuthUser(u *models.AuthUser) *models.AuthUser {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}
