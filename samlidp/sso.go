package samlidp

import (
	"encoding/base64"
	"html/template"
	"net/http"

	"github.com/zenazn/goji/web"

	"github.com/quillauth/samlbridge"
)

var loginFormTmpl = template.Must(template.New("loginForm").Parse(`<!DOCTYPE html>
<html>
<body>
<form method="post" action="/saml/sso">
<input type="hidden" name="SAMLRequest" value="{{.SAMLRequest}}" />
{{if .RelayState}}<input type="hidden" name="RelayState" value="{{.RelayState}}" />{{end}}
<label>Email <input type="text" name="username" /></label>
<label>Password <input type="password" name="password" /></label>
<input type="submit" value="Sign in" />
</form>
</body>
</html>
`))

var responseFormTmpl = template.Must(template.New("responseForm").Parse(`<!DOCTYPE html>
<html>
<body onload="document.forms[0].submit()">
<form method="post" action="{{.URL}}">
<input type="hidden" name="SAMLResponse" value="{{.SAMLResponse}}" />
{{if .RelayState}}<input type="hidden" name="RelayState" value="{{.RelayState}}" />{{end}}
<noscript><input type="submit" value="Continue" /></noscript>
</form>
</body>
</html>
`))

// HandleLoginForm renders the credential prompt, carrying the pending
// SAMLRequest and RelayState through as hidden fields. Nothing is validated
// here; that happens when the form posts to the SSO endpoint.
func (s *Server) HandleLoginForm(_ web.C, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := loginFormTmpl.Execute(w, struct {
		SAMLRequest string
		RelayState  string
	}{
		SAMLRequest: r.PostForm.Get("SAMLRequest"),
		RelayState:  r.PostForm.Get("RelayState"),
	})
	if err != nil {
		s.logger.WithError(err).Error("cannot render login form")
	}
}

// HandleSSO is the single sign-on endpoint. The request must carry a valid
// signed SAMLRequest and credentials the user store accepts; only then is a
// response constructed. Failures get generic bodies so the endpoint cannot
// be used to probe which check failed.
func (s *Server) HandleSSO(_ web.C, w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	req, err := s.IDP.ValidateAuthnRequest(r.PostForm.Get("SAMLRequest"))
	if err != nil {
		s.logger.WithError(err).Warn("rejected authentication request")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	identity, err := s.Verify(r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		s.logger.WithField("issuer", req.Issuer.Value).Warn("rejected credentials")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	resp := s.IDP.MakeResponse(*identity, req.ID, req.AssertionConsumerServiceURL)
	buf, err := s.IDP.SignResponse(resp)
	if err != nil {
		s.logger.WithError(err).Error("cannot sign response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"email":  identity.Email,
		"issuer": req.Issuer.Value,
	}).Info("issued assertion")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = responseFormTmpl.Execute(w, struct {
		URL          string
		SAMLResponse string
		RelayState   string
	}{
		URL:          req.AssertionConsumerServiceURL,
		SAMLResponse: base64.StdEncoding.EncodeToString(buf),
		RelayState:   r.PostForm.Get("RelayState"),
	})
	if err != nil {
		s.logger.WithError(err).Error("cannot render response form")
	}
}

var _ samlbridge.CredentialVerifier = (*Server)(nil)
