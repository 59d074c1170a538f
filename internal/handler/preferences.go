package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/middleware"
	"github.com/rainbowtourguides/backend/internal/preference"
)

// VisitorCookie holds the anonymous visitor id when the client does not send
// the X-Visitor-ID header.
const VisitorCookie = "rtg_visitor"

const visitorCookieMaxAge = 365 * 24 * time.Hour

// PreferencesResponse is the body of GET/PUT /api/preferences.
type PreferencesResponse struct {
	Language   preference.Language   `json:"language"`
	Currency   preference.Currency   `json:"currency"`
	Languages  []preference.Language `json:"languages"`
	Currencies []preference.Currency `json:"currencies"`
}

// PreferencesRequest is the body of PUT /api/preferences. Absent fields are left unchanged.
type PreferencesRequest struct {
	Language *string `json:"language"`
	Currency *string `json:"currency"`
}

// ConsentResponse is the body of every consent endpoint. Scripts lists the
// third-party scripts the client should have injected right now.
type ConsentResponse struct {
	Consent    *preference.Consent `json:"consent"`
	ShowBanner bool                `json:"showBanner"`
	Scripts    []preference.Script `json:"scripts"`
}

// ConsentRequest is the body of PUT /api/consent. Essential is always granted.
type ConsentRequest struct {
	Analytics   bool `json:"analytics"`
	Marketing   bool `json:"marketing"`
	Preferences bool `json:"preferences"`
}

// visitorSession is a preference session plus the script set it drives.
type visitorSession struct {
	*preference.Session
	scripts *preference.ScriptSet
}

// session opens the caller's preference session. The visitor id comes from the
// X-Visitor-ID header or the visitor cookie; when neither carries a valid id a
// new one is minted. The id is echoed back in both places.
func (s *Server) session(w http.ResponseWriter, r *http.Request) visitorSession {
	id := visitorID(r)
	if id == "" {
		id = uuid.NewString()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(visitorCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(middleware.VisitorHeader, id)

	scripts := preference.NewScriptSet(preference.DefaultScripts())
	sess := preference.Open(r.Context(), s.prefs, id, preference.Options{
		AcceptLanguage: r.Header.Get("Accept-Language"),
		Injector:       scripts,
		Logger:         s.log,
	})
	return visitorSession{Session: sess, scripts: scripts}
}

// visitorID returns the caller's id if it is a UUID. Anything else is ignored
// so arbitrary strings never reach the storage key space.
func visitorID(r *http.Request) string {
	candidates := []string{r.Header.Get(middleware.VisitorHeader)}
	if c, err := r.Cookie(VisitorCookie); err == nil {
		candidates = append(candidates, c.Value)
	}
	for _, c := range candidates {
		if id, err := uuid.Parse(c); err == nil {
			return id.String()
		}
	}
	return ""
}

// GetPreferences handles GET /api/preferences.
func (s *Server) GetPreferences(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	writeJSON(w, http.StatusOK, preferencesToResponse(sess.Preferences()))
}

// PutPreferences handles PUT /api/preferences.
func (s *Server) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var body PreferencesRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	// Both fields are checked before either is saved.
	if body.Language != nil {
		if _, err := preference.ParseLanguage(*body.Language); err != nil {
			s.serviceError(w, r, err)
			return
		}
	}
	if body.Currency != nil {
		if _, err := preference.ParseCurrency(*body.Currency); err != nil {
			s.serviceError(w, r, err)
			return
		}
	}

	sess := s.session(w, r)
	if body.Language != nil {
		if err := sess.SetLanguage(r.Context(), *body.Language); err != nil {
			s.serviceError(w, r, err)
			return
		}
	}
	if body.Currency != nil {
		if err := sess.SetCurrency(r.Context(), *body.Currency); err != nil {
			s.serviceError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, preferencesToResponse(sess.Preferences()))
}

// GetConsent handles GET /api/consent.
func (s *Server) GetConsent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, consentToResponse(s.session(w, r)))
}

// PutConsent handles PUT /api/consent.
func (s *Server) PutConsent(w http.ResponseWriter, r *http.Request) {
	var body ConsentRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	sess := s.session(w, r)
	sess.SetConsent(r.Context(), preference.CookiePreferences{
		Analytics:   body.Analytics,
		Marketing:   body.Marketing,
		Preferences: body.Preferences,
	})
	writeJSON(w, http.StatusOK, consentToResponse(sess))
}

// DeleteConsent handles DELETE /api/consent. The banner shows again afterwards.
func (s *Server) DeleteConsent(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.ClearConsent(r.Context())
	writeJSON(w, http.StatusOK, consentToResponse(sess))
}

// AcceptAllConsent handles POST /api/consent/accept-all.
func (s *Server) AcceptAllConsent(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.AcceptAll(r.Context())
	writeJSON(w, http.StatusOK, consentToResponse(sess))
}

// RejectAllConsent handles POST /api/consent/reject-all.
func (s *Server) RejectAllConsent(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	sess.RejectAll(r.Context())
	writeJSON(w, http.StatusOK, consentToResponse(sess))
}

func preferencesToResponse(p preference.Preferences) PreferencesResponse {
	return PreferencesResponse{
		Language:   p.Language,
		Currency:   p.Currency,
		Languages:  preference.Languages(),
		Currencies: preference.Currencies(),
	}
}

func consentToResponse(sess visitorSession) ConsentResponse {
	resp := ConsentResponse{ShowBanner: sess.ShowBanner(), Scripts: sess.scripts.Active()}
	if c, ok := sess.Consent(); ok {
		resp.Consent = &c
	}
	return resp
}
