package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"zenfocus/backend/internal/logger"
)

type FederatedMethod string

const (
	MethodPopup    FederatedMethod = "popup"
	MethodRedirect FederatedMethod = "redirect"
)

// FederatedProfile is what a federated provider tells us about the user.
type FederatedProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
}

func ProfileFromGoth(u goth.User) FederatedProfile {
	name := u.Name
	if name == "" {
		name = u.NickName
	}
	return FederatedProfile{
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
		Email:          u.Email,
		Name:           name,
	}
}

var mobileAgent = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// IsMobileUserAgent reports whether popups should be skipped for this client.
func IsMobileUserAgent(ua string) bool {
	return mobileAgent.MatchString(ua)
}

// FederatedAttempt starts one sign-in attempt with the given method.
type FederatedAttempt func(ctx context.Context, method FederatedMethod) error

// SignInFederated starts federated sign-in. Mobile clients go straight to
// redirect. Otherwise a popup is tried and, only when it is blocked, one
// redirect attempt follows. No other failure is retried.
func SignInFederated(ctx context.Context, userAgent string, attempt FederatedAttempt) (FederatedMethod, error) {
	if IsMobileUserAgent(userAgent) {
		return MethodRedirect, wrapAttempt(attempt(ctx, MethodRedirect))
	}

	err := attempt(ctx, MethodPopup)
	if err == nil {
		return MethodPopup, nil
	}
	if !HasCode(err, CodePopupBlocked) {
		return MethodPopup, wrapAttempt(err)
	}

	logger.Warn("popup blocked, falling back to redirect")
	return MethodRedirect, wrapAttempt(attempt(ctx, MethodRedirect))
}

func wrapAttempt(err error) error {
	if err == nil {
		return nil
	}
	return AsAuthError(err)
}

type FederatedConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	SessionSecret      string
	SessionMaxAge      int
	Secure             bool
}

type providerKey struct{}

// WithProvider stores the provider name where gothic looks it up.
func WithProvider(r *http.Request, provider string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), providerKey{}, provider))
}

func providerFromRequest(r *http.Request) (string, error) {
	if p, ok := r.Context().Value(providerKey{}).(string); ok && p != "" {
		return p, nil
	}
	if p := r.URL.Query().Get("provider"); p != "" {
		return p, nil
	}
	return "", errors.New("no provider specified")
}

// ConfigureFederated registers the Google provider and the cookie session
// store that carries OAuth state between begin and callback.
func ConfigureFederated(cfg FederatedConfig) error {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return NewAuthError(CodeOperationNotAllowed, errors.New("google client is not configured"))
	}

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	goth.UseProviders(
		google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, "email", "profile"),
	)
	gothic.GetProviderName = providerFromRequest

	return nil
}

// FederatedEnabled reports whether provider has been registered.
func FederatedEnabled(provider string) bool {
	_, err := goth.GetProvider(provider)
	return err == nil
}

// BeginURL returns the provider consent URL for r and saves the OAuth state.
func BeginURL(w http.ResponseWriter, r *http.Request) (string, error) {
	provider, err := providerFromRequest(r)
	if err != nil || !FederatedEnabled(provider) {
		return "", NewAuthError(CodeOperationNotAllowed, fmt.Errorf("provider %q is not enabled", provider))
	}

	url, err := gothic.GetAuthURL(w, r)
	if err != nil {
		return "", NewAuthError(CodeUnknown, err)
	}
	return url, nil
}

// CompleteAuth finishes the provider callback. A consent screen the user
// dismissed arrives as error=access_denied.
func CompleteAuth(w http.ResponseWriter, r *http.Request) (FederatedProfile, error) {
	if r.URL.Query().Get("error") == "access_denied" {
		return FederatedProfile{}, NewAuthError(CodePopupClosed, nil)
	}

	user, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		return FederatedProfile{}, NewAuthError(CodeUnknown, err)
	}
	return ProfileFromGoth(user), nil
}

// EndSession clears the provider session cookie.
func EndSession(w http.ResponseWriter, r *http.Request) {
	if err := gothic.Logout(w, r); err != nil {
		logger.Debug("no federated session to clear", "error", err)
	}
}
