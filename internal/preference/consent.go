package preference

import (
	"sort"
	"time"
)

// ConsentVersion is bumped whenever the cookie categories change. Records
// written under an older version are treated as absent so the banner shows again.
const ConsentVersion = 1

// CookiePreferences are the visitor's per-category opt-ins.
// Essential cookies cannot be refused; Essential is forced true on every write.
type CookiePreferences struct {
	Essential   bool `json:"essential"`
	Analytics   bool `json:"analytics"`
	Marketing   bool `json:"marketing"`
	Preferences bool `json:"preferences"`
}

// Consent is a versioned, timestamped snapshot of a visitor's cookie choices.
type Consent struct {
	Version     int               `json:"version"`
	Timestamp   time.Time         `json:"timestamp"`
	Preferences CookiePreferences `json:"preferences"`
}

// Category groups third-party scripts that share a consent switch.
type Category string

const (
	CategoryAnalytics Category = "analytics"
	CategoryMarketing Category = "marketing"
)

// Script is a third-party script the UI injects once its category is allowed.
type Script struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Src      string   `json:"src"`
}

// ScriptInjector reacts to consent changes. Inject and Remove must be idempotent.
type ScriptInjector interface {
	Inject(c Category)
	Remove(c Category)
}

// ScriptSet is the default ScriptInjector: it tracks which scripts of a fixed
// catalog are currently active so the API can tell the UI what to load.
type ScriptSet struct {
	catalog []Script
	active  map[string]Script
}

// NewScriptSet returns a ScriptSet with nothing injected.
func NewScriptSet(catalog []Script) *ScriptSet {
	return &ScriptSet{catalog: catalog, active: make(map[string]Script)}
}

func (s *ScriptSet) Inject(c Category) {
	for _, sc := range s.catalog {
		if sc.Category == c {
			s.active[sc.ID] = sc
		}
	}
}

func (s *ScriptSet) Remove(c Category) {
	for id, sc := range s.active {
		if sc.Category == c {
			delete(s.active, id)
		}
	}
}

// Active returns the injected scripts ordered by ID.
func (s *ScriptSet) Active() []Script {
	out := make([]Script, 0, len(s.active))
	for _, sc := range s.active {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DefaultScripts is the catalog of third-party scripts the site can load.
func DefaultScripts() []Script {
	return []Script{
		{ID: "plausible", Category: CategoryAnalytics, Src: "https://plausible.io/js/script.js"},
		{ID: "meta-pixel", Category: CategoryMarketing, Src: "https://connect.facebook.net/en_US/fbevents.js"},
	}
}
