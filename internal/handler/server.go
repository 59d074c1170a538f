// Package handler implements the HTTP handlers for the Rainbow Tour Guides API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (availability.go, guides.go, etc.) but all share the same Server struct
// so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/auth"
	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/middleware"
	"github.com/rainbowtourguides/backend/internal/preference"
	"github.com/rainbowtourguides/backend/internal/pricing"
	"github.com/rainbowtourguides/backend/internal/service"
)

// SlotServicer defines the availability operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type SlotServicer interface {
	List(ctx context.Context, f domain.SlotFilter) (domain.SlotCalendar, error)
	Create(ctx context.Context, actor domain.Actor, slot domain.Slot) (domain.Slot, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	SetStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, status domain.SlotStatus) (domain.Slot, error)
}

// ExportServicer produces the flat calendar export.
type ExportServicer interface {
	Export(ctx context.Context, guideID uuid.UUID, first, last time.Time) ([]domain.ExportRow, error)
}

// GuideServicer defines the guide directory operations.
type GuideServicer interface {
	Create(ctx context.Context, actor domain.Actor, g domain.GuideProfile) (domain.GuideProfile, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.GuideProfile, error)
	ListPaged(ctx context.Context, f domain.GuideFilter, p domain.PaginationParams) ([]domain.GuideProfile, int64, error)
	Update(ctx context.Context, actor domain.Actor, g domain.GuideProfile) (domain.GuideProfile, error)
	Quote(ctx context.Context, id uuid.UUID, hours, travelers int) (pricing.Breakdown, error)
}

// ThemeServicer lists theme tags.
type ThemeServicer interface {
	ListPaged(ctx context.Context, prefix string, p domain.PaginationParams) ([]domain.Theme, int64, error)
}

// ReservationServicer defines the booking flow.
type ReservationServicer interface {
	Create(ctx context.Context, actor domain.Actor, req service.CreateReservation) (domain.Reservation, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Reservation, error)
	Accept(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Reservation, error)
	Cancel(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Reservation, error)
	Complete(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Reservation, error)
}

// DemoAuthenticator issues tokens without credential checks.
type DemoAuthenticator interface {
	DemoLogin(ctx context.Context, email string, role domain.Role) (string, domain.Actor, error)
}

// Deps are the Server's collaborators. Nil servicers are allowed in tests that
// never reach them; a nil DemoAuth leaves POST /api/auth/demo unmounted.
type Deps struct {
	Slots        SlotServicer
	Exports      ExportServicer
	Guides       GuideServicer
	Themes       ThemeServicer
	Reservations ReservationServicer
	DemoAuth     DemoAuthenticator
	Preferences  preference.Storage
	Verifier     auth.Verifier
	Logger       *slog.Logger
}

// Server holds the handler dependencies.
type Server struct {
	slots        SlotServicer
	exports      ExportServicer
	guides       GuideServicer
	themes       ThemeServicer
	reservations ReservationServicer
	demoAuth     DemoAuthenticator
	prefs        preference.Storage
	verifier     auth.Verifier
	log          *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Preferences == nil {
		d.Preferences = preference.NewMemoryStorage()
	}
	return &Server{
		slots:        d.Slots,
		exports:      d.Exports,
		guides:       d.Guides,
		themes:       d.Themes,
		reservations: d.Reservations,
		demoAuth:     d.DemoAuth,
		prefs:        d.Preferences,
		verifier:     d.Verifier,
		log:          d.Logger,
	}
}

// Routes returns the API router. Cross-cutting middleware (request id,
// logging, CORS, limits) is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/api", func(r chi.Router) {
		// Public reads.
		r.Get("/availability", s.ListAvailability)
		r.Get("/guides", s.ListGuides)
		r.Get("/guides/{id}", s.GetGuide)
		r.Get("/guides/{id}/quote", s.QuoteGuide)
		r.Get("/guides/{id}/availability/export", s.ExportAvailability)
		r.Get("/themes", s.ListThemes)

		// Anonymous visitor state.
		r.Get("/preferences", s.GetPreferences)
		r.Put("/preferences", s.PutPreferences)
		r.Get("/consent", s.GetConsent)
		r.Put("/consent", s.PutConsent)
		r.Delete("/consent", s.DeleteConsent)
		r.Post("/consent/accept-all", s.AcceptAllConsent)
		r.Post("/consent/reject-all", s.RejectAllConsent)

		if s.demoAuth != nil {
			r.Post("/auth/demo", s.DemoLogin)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(s.verifier, domain.RoleGuide))
			r.Post("/guides", s.CreateGuide)
			r.Put("/guides/{id}", s.UpdateGuide)
			r.Post("/guides/availability", s.CreateSlot)
			r.Delete("/availability/{id}", s.DeleteSlot)
			r.Patch("/availability/{id}", s.PatchSlot)
			r.Post("/reservations/{id}/accept", s.AcceptReservation)
			r.Post("/reservations/{id}/complete", s.CompleteReservation)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(s.verifier, domain.RoleTraveler))
			r.Post("/reservations", s.CreateReservation)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(s.verifier))
			r.Get("/reservations/{id}", s.GetReservation)
			r.Post("/reservations/{id}/cancel", s.CancelReservation)
		})
	})
	return r
}
