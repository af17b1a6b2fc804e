package samlsp

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Middleware ties the pieces of the service provider together behind an
// http.Handler: it starts logins, consumes posted SAML responses, and
// guards application routes with bearer-token checks.
type Middleware struct {
	ServiceProvider *ServiceProvider
	Issuer          SessionIssuer
	Verifier        SessionVerifier
	Logger          logrus.FieldLogger
}

// StartLoginPath initiates the sign-on flow; the assertion consumer path is
// derived from the configured ACS URL.
const StartLoginPath = "/api/auth/saml/start"

func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == StartLoginPath {
		m.StartLogin(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == m.acsPath() {
		m.HandleLogin(w, r)
		return
	}
	http.NotFound(w, r)
}

func (m *Middleware) acsPath() string {
	u, err := url.Parse(m.ServiceProvider.ACSURL)
	if err != nil {
		return "/api/auth/saml/login"
	}
	return u.Path
}

var authnRequestForm = template.Must(template.New("authnRequest").Parse(`<!DOCTYPE html>
<html>
<body onload="document.forms[0].submit()">
<form method="post" action="{{.URL}}">
<input type="hidden" name="SAMLRequest" value="{{.SAMLRequest}}" />
{{if .RelayState}}<input type="hidden" name="RelayState" value="{{.RelayState}}" />{{end}}
<noscript><input type="submit" value="Continue" /></noscript>
</form>
</body>
</html>
`))

// StartLogin issues a signed AuthnRequest and returns an auto-submitting
// form that posts it to the IdP's single sign-on endpoint.
func (m *Middleware) StartLogin(w http.ResponseWriter, r *http.Request) {
	id, encoded, err := m.ServiceProvider.MakeAuthnRequest()
	if err != nil {
		m.logger().WithError(err).Error("cannot build authentication request")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	m.logger().WithField("request_id", id).Debug("starting sign-on")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = authnRequestForm.Execute(w, struct {
		URL         string
		SAMLRequest string
		RelayState  string
	}{
		URL:         m.ServiceProvider.IDPSSOURL,
		SAMLRequest: encoded,
		RelayState:  r.URL.Query().Get("RelayState"),
	})
	if err != nil {
		m.logger().WithError(err).Error("cannot render sign-on form")
	}
}

// HandleLogin consumes a posted SAMLResponse and, when it validates,
// answers with a JSON body carrying a fresh bearer token. Every failure
// mode answers 401 with the same generic body.
func (m *Middleware) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		m.unauthorized(w, err)
		return
	}
	attrs, err := m.ServiceProvider.ParseResponse(r.PostForm.Get("SAMLResponse"))
	if err != nil {
		m.unauthorized(w, err)
		return
	}
	token, err := m.Issuer.Issue(attrs.Email, attrs.Roles)
	if err != nil {
		m.logger().WithError(err).Error("cannot issue session token")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	m.logger().WithField("email", attrs.Email).Info("sign-on complete")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"token": token}); err != nil {
		m.logger().WithError(err).Error("cannot write token response")
	}
}

// RequireToken wraps next so it only runs for requests carrying a valid
// bearer token. The verified principal is placed in the request context.
func (m *Middleware) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			m.unauthorized(w, ErrInvalidToken)
			return
		}
		principal, err := m.Verifier.Verify(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			m.unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

// unauthorized logs the real reason and answers with a body that does not
// reveal it.
func (m *Middleware) unauthorized(w http.ResponseWriter, err error) {
	m.logger().WithError(err).Warn("authentication rejected")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func (m *Middleware) logger() logrus.FieldLogger {
	if m.Logger != nil {
		return m.Logger
	}
	return logrus.StandardLogger()
}

type contextKey int

const principalKey contextKey = 0

func withPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal RequireToken attached, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}
