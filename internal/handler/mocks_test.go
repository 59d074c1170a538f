package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/handler"
	"github.com/rainbowtourguides/backend/internal/pricing"
	"github.com/rainbowtourguides/backend/internal/service"
)

// ---- mock servicers --------------------------------------------------------
// Set only the method fields your test needs.

type mockSlotServicer struct {
	list      func(ctx context.Context, f domain.SlotFilter) (domain.SlotCalendar, error)
	create    func(ctx context.Context, a domain.Actor, s domain.Slot) (domain.Slot, error)
	delete    func(ctx context.Context, a domain.Actor, id uuid.UUID) error
	setStatus func(ctx context.Context, a domain.Actor, id uuid.UUID, st domain.SlotStatus) (domain.Slot, error)
}

func (m *mockSlotServicer) List(ctx context.Context, f domain.SlotFilter) (domain.SlotCalendar, error) {
	return m.list(ctx, f)
}
func (m *mockSlotServicer) Create(ctx context.Context, a domain.Actor, s domain.Slot) (domain.Slot, error) {
	return m.create(ctx, a, s)
}
func (m *mockSlotServicer) Delete(ctx context.Context, a domain.Actor, id uuid.UUID) error {
	return m.delete(ctx, a, id)
}
func (m *mockSlotServicer) SetStatus(ctx context.Context, a domain.Actor, id uuid.UUID, st domain.SlotStatus) (domain.Slot, error) {
	return m.setStatus(ctx, a, id, st)
}

type mockExportServicer struct {
	export func(ctx context.Context, guideID uuid.UUID, from, to time.Time) ([]domain.ExportRow, error)
}

func (m *mockExportServicer) Export(ctx context.Context, guideID uuid.UUID, from, to time.Time) ([]domain.ExportRow, error) {
	return m.export(ctx, guideID, from, to)
}

type mockGuideServicer struct {
	create    func(ctx context.Context, a domain.Actor, g domain.GuideProfile) (domain.GuideProfile, error)
	getByID   func(ctx context.Context, id uuid.UUID) (domain.GuideProfile, error)
	listPaged func(ctx context.Context, f domain.GuideFilter, p domain.PaginationParams) ([]domain.GuideProfile, int64, error)
	update    func(ctx context.Context, a domain.Actor, g domain.GuideProfile) (domain.GuideProfile, error)
	quote     func(ctx context.Context, id uuid.UUID, hours, travelers int) (pricing.Breakdown, error)
}

func (m *mockGuideServicer) Create(ctx context.Context, a domain.Actor, g domain.GuideProfile) (domain.GuideProfile, error) {
	return m.create(ctx, a, g)
}
func (m *mockGuideServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.GuideProfile, error) {
	return m.getByID(ctx, id)
}
func (m *mockGuideServicer) ListPaged(ctx context.Context, f domain.GuideFilter, p domain.PaginationParams) ([]domain.GuideProfile, int64, error) {
	return m.listPaged(ctx, f, p)
}
func (m *mockGuideServicer) Update(ctx context.Context, a domain.Actor, g domain.GuideProfile) (domain.GuideProfile, error) {
	return m.update(ctx, a, g)
}
func (m *mockGuideServicer) Quote(ctx context.Context, id uuid.UUID, hours, travelers int) (pricing.Breakdown, error) {
	return m.quote(ctx, id, hours, travelers)
}

type mockThemeServicer struct {
	listPaged func(ctx context.Context, prefix string, p domain.PaginationParams) ([]domain.Theme, int64, error)
}

func (m *mockThemeServicer) ListPaged(ctx context.Context, prefix string, p domain.PaginationParams) ([]domain.Theme, int64, error) {
	return m.listPaged(ctx, prefix, p)
}

type reservationCall func(ctx context.Context, a domain.Actor, id uuid.UUID) (domain.Reservation, error)

type mockReservationServicer struct {
	create   func(ctx context.Context, a domain.Actor, req service.CreateReservation) (domain.Reservation, error)
	get      reservationCall
	accept   reservationCall
	cancel   reservationCall
	complete reservationCall
}

func (m *mockReservationServicer) Create(ctx context.Context, a domain.Actor, req service.CreateReservation) (domain.Reservation, error) {
	return m.create(ctx, a, req)
}
func (m *mockReservationServicer) Get(ctx context.Context, a domain.Actor, id uuid.UUID) (domain.Reservation, error) {
	return m.get(ctx, a, id)
}
func (m *mockReservationServicer) Accept(ctx context.Context, a domain.Actor, id uuid.UUID) (domain.Reservation, error) {
	return m.accept(ctx, a, id)
}
func (m *mockReservationServicer) Cancel(ctx context.Context, a domain.Actor, id uuid.UUID) (domain.Reservation, error) {
	return m.cancel(ctx, a, id)
}
func (m *mockReservationServicer) Complete(ctx context.Context, a domain.Actor, id uuid.UUID) (domain.Reservation, error) {
	return m.complete(ctx, a, id)
}

type mockDemoAuth struct {
	login func(ctx context.Context, email string, role domain.Role) (string, domain.Actor, error)
}

func (m *mockDemoAuth) DemoLogin(ctx context.Context, email string, role domain.Role) (string, domain.Actor, error) {
	return m.login(ctx, email, role)
}

// compile-time checks: mocks must satisfy the handler interfaces.
var (
	_ handler.SlotServicer        = (*mockSlotServicer)(nil)
	_ handler.ExportServicer      = (*mockExportServicer)(nil)
	_ handler.GuideServicer       = (*mockGuideServicer)(nil)
	_ handler.ThemeServicer       = (*mockThemeServicer)(nil)
	_ handler.ReservationServicer = (*mockReservationServicer)(nil)
	_ handler.DemoAuthenticator   = (*mockDemoAuth)(nil)
)

// ---- auth ------------------------------------------------------------------

var (
	guideActor    = domain.Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000a1"), Role: domain.RoleGuide}
	travelerActor = domain.Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-0000000000b1"), Role: domain.RoleTraveler}
)

// tokens maps bearer tokens to the actors they authenticate.
type tokens map[string]domain.Actor

func (t tokens) Verify(token string) (domain.Actor, error) {
	a, ok := t[token]
	if !ok {
		return domain.Actor{}, errors.New("unknown token")
	}
	return a, nil
}

var testTokens = tokens{"guide-token": guideActor, "traveler-token": travelerActor}

// ---- helpers ---------------------------------------------------------------

// newRouter wires a Server with the given deps exactly as main.go does,
// defaulting the verifier to testTokens.
func newRouter(d handler.Deps) http.Handler {
	if d.Verifier == nil {
		d.Verifier = testTokens
	}
	return handler.NewServer(d).Routes()
}

// httptestRequest builds a request with an optional JSON body.
func httptestRequest(method, url string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, url, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// do sends one request through h. token may be empty; body is JSON-encoded when non-nil.
func do(t *testing.T, h http.Handler, method, url, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptestRequest(method, url, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return serve(h, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	return decode[handler.ErrorResponse](t, rec).Error
}
