package preference

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// Options configures Open. Zero values are usable.
type Options struct {
	// AcceptLanguage seeds language detection when nothing is stored.
	AcceptLanguage string
	// Injector receives consent changes. Defaults to a ScriptSet over DefaultScripts.
	Injector ScriptInjector
	Logger   *slog.Logger
	Now      func() time.Time
}

// Session is one visitor's preference and consent state.
// It is loaded once by Open and every mutation writes through to Storage
// immediately. A Session is not safe for concurrent use.
type Session struct {
	store     Storage
	visitorID string
	injector  ScriptInjector
	log       *slog.Logger
	now       func() time.Time

	prefs   Preferences
	consent *Consent
}

// Open loads the visitor's state. Missing or unreadable records degrade to
// defaults: detected language, USD, no consent. Read failures are logged and
// never returned.
func Open(ctx context.Context, store Storage, visitorID string, opts Options) *Session {
	s := &Session{
		store:     store,
		visitorID: visitorID,
		injector:  opts.Injector,
		log:       opts.Logger,
		now:       opts.Now,
	}
	if s.injector == nil {
		s.injector = NewScriptSet(DefaultScripts())
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.prefs = Preferences{Language: DetectLanguage(opts.AcceptLanguage), Currency: DefaultCurrency}
	var stored Preferences
	if s.load(ctx, s.prefsKey(), &stored) {
		if l, err := ParseLanguage(string(stored.Language)); err == nil {
			s.prefs.Language = l
		}
		if c, err := ParseCurrency(string(stored.Currency)); err == nil {
			s.prefs.Currency = c
		}
	}

	var c Consent
	if s.load(ctx, s.consentKey(), &c) && c.Version == ConsentVersion {
		c.Preferences.Essential = true
		s.consent = &c
		s.applyScripts(c.Preferences)
	}
	return s
}

// VisitorID returns the id the session was opened for.
func (s *Session) VisitorID() string { return s.visitorID }

// Preferences returns the current display preferences.
func (s *Session) Preferences() Preferences { return s.prefs }

// SetLanguage validates and persists the language.
func (s *Session) SetLanguage(ctx context.Context, lang string) error {
	l, err := ParseLanguage(lang)
	if err != nil {
		return err
	}
	s.prefs.Language = l
	s.save(ctx, s.prefsKey(), s.prefs)
	return nil
}

// SetCurrency validates and persists the currency.
func (s *Session) SetCurrency(ctx context.Context, currency string) error {
	c, err := ParseCurrency(currency)
	if err != nil {
		return err
	}
	s.prefs.Currency = c
	s.save(ctx, s.prefsKey(), s.prefs)
	return nil
}

// FormatPrice renders a USD amount in the visitor's currency.
func (s *Session) FormatPrice(amountUSD float64) string {
	return FormatPrice(amountUSD, s.prefs.Currency)
}

// Consent returns the recorded consent, if any.
func (s *Session) Consent() (Consent, bool) {
	if s.consent == nil {
		return Consent{}, false
	}
	return *s.consent, true
}

// HasConsented reports whether any consent, reject-all included, is recorded.
func (s *Session) HasConsented() bool { return s.consent != nil }

// ShowBanner reports whether the UI must show the cookie banner.
func (s *Session) ShowBanner() bool { return !s.HasConsented() }

// SetConsent records prefs (with Essential forced on), persists the record and
// applies the script changes before returning.
func (s *Session) SetConsent(ctx context.Context, prefs CookiePreferences) Consent {
	prefs.Essential = true
	c := Consent{Version: ConsentVersion, Timestamp: s.now().UTC(), Preferences: prefs}
	s.consent = &c
	s.save(ctx, s.consentKey(), c)
	s.applyScripts(prefs)
	return c
}

// AcceptAll opts into every category.
func (s *Session) AcceptAll(ctx context.Context) Consent {
	return s.SetConsent(ctx, CookiePreferences{Analytics: true, Marketing: true, Preferences: true})
}

// RejectAll opts out of every optional category.
func (s *Session) RejectAll(ctx context.Context) Consent {
	return s.SetConsent(ctx, CookiePreferences{})
}

// ClearConsent forgets the record so the banner shows again, and removes
// every optional script.
func (s *Session) ClearConsent(ctx context.Context) {
	s.consent = nil
	if err := s.store.Delete(ctx, s.consentKey()); err != nil {
		s.log.WarnContext(ctx, "failed to delete consent", "visitor_id", s.visitorID, "error", err)
	}
	s.applyScripts(CookiePreferences{})
}

// ActiveScripts lists the scripts the UI should have injected, when the
// injector is a ScriptSet.
func (s *Session) ActiveScripts() []Script {
	if set, ok := s.injector.(*ScriptSet); ok {
		return set.Active()
	}
	return nil
}

func (s *Session) applyScripts(p CookiePreferences) {
	toggle := func(on bool, c Category) {
		if on {
			s.injector.Inject(c)
		} else {
			s.injector.Remove(c)
		}
	}
	toggle(p.Analytics, CategoryAnalytics)
	toggle(p.Marketing, CategoryMarketing)
}

func (s *Session) prefsKey() string   { return "prefs:" + s.visitorID }
func (s *Session) consentKey() string { return "consent:" + s.visitorID }

// load decodes the record under key into dst and reports whether it did.
func (s *Session) load(ctx context.Context, key string, dst any) bool {
	raw, err := s.store.Load(ctx, key)
	if errors.Is(err, ErrNotStored) {
		return false
	}
	if err != nil {
		s.log.WarnContext(ctx, "failed to load preference record", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.WarnContext(ctx, "discarding malformed preference record", "key", key, "error", err)
		return false
	}
	return true
}

// save persists v. Failures keep the in-memory value and are only logged.
func (s *Session) save(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to encode preference record", "key", key, "error", err)
		return
	}
	if err := s.store.Save(ctx, key, raw); err != nil {
		s.log.WarnContext(ctx, "failed to persist preference record", "key", key, "error", err)
	}
}
