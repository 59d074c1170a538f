package apiclient_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainbowtourguides/backend/internal/apiclient"
	"github.com/rainbowtourguides/backend/internal/cache"
	"github.com/rainbowtourguides/backend/internal/domain"
	"github.com/rainbowtourguides/backend/internal/handler"
)

var guideID = uuid.MustParse("00000000-0000-0000-0000-00000000beef")

// fakeSlots is an in-memory handler.SlotServicer. When gate is set, List
// calls whose range starts at gateFrom block until gate is closed.
type fakeSlots struct {
	mu       sync.Mutex
	slots    []domain.Slot
	lists    atomic.Int32
	gate     chan struct{}
	gateFrom time.Time
	entered  chan struct{}
}

func (f *fakeSlots) List(_ context.Context, flt domain.SlotFilter) (domain.SlotCalendar, error) {
	f.lists.Add(1)
	if f.gate != nil && flt.From.Equal(f.gateFrom) {
		close(f.entered)
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Slot{}
	for _, s := range f.slots {
		if !s.StartTime.Before(flt.From) && s.StartTime.Before(flt.To) {
			out = append(out, s)
		}
	}
	return domain.SlotCalendar{Slots: out, Days: domain.GroupByDay(out, time.UTC)}, nil
}

func (f *fakeSlots) Create(_ context.Context, _ domain.Actor, s domain.Slot) (domain.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID, s.Status = uuid.New(), domain.SlotOpen
	f.slots = append(f.slots, s)
	return s, nil
}

func (f *fakeSlots) Delete(_ context.Context, _ domain.Actor, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.slots {
		if s.ID == id {
			if s.Status != domain.SlotOpen {
				return fmt.Errorf("%w: slot is not open", domain.ErrConflict)
			}
			f.slots = append(f.slots[:i], f.slots[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeSlots) SetStatus(_ context.Context, _ domain.Actor, id uuid.UUID, st domain.SlotStatus) (domain.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.slots {
		if f.slots[i].ID == id {
			f.slots[i].Status = st
			return f.slots[i], nil
		}
	}
	return domain.Slot{}, domain.ErrNotFound
}

type staticVerifier struct{}

func (staticVerifier) Verify(string) (domain.Actor, error) {
	return domain.Actor{UserID: uuid.New(), Role: domain.RoleGuide}, nil
}

func newClient(t *testing.T, slots *fakeSlots) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler.NewServer(handler.Deps{Slots: slots, Verifier: staticVerifier{}}).Routes())
	t.Cleanup(srv.Close)
	return apiclient.New(srv.URL, cache.New(cache.NewMemoryStore(), time.Minute, nil),
		apiclient.WithHTTPClient(srv.Client()), apiclient.WithToken("guide"))
}

var (
	june1 = time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC)
	june8 = june1.AddDate(0, 0, 7)
)

func TestClient_ListAvailability_CachesUntilMutation(t *testing.T) {
	slots := &fakeSlots{}
	c := newClient(t, slots)
	ctx := context.Background()

	cal, err := c.ListAvailability(ctx, guideID, june1, june8, "")
	require.NoError(t, err)
	assert.Empty(t, cal.Slots)

	_, err = c.ListAvailability(ctx, guideID, june1, june8, "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), slots.lists.Load(), "second read should be served from cache")

	created, err := c.CreateSlot(ctx, handler.CreateSlotRequest{
		GuideID: guideID, StartTime: june1.Add(9 * time.Hour), DurationHours: 4,
	})
	require.NoError(t, err)

	cal, err = c.ListAvailability(ctx, guideID, june1, june8, "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), slots.lists.Load(), "create must invalidate the guide's calendars")
	require.Len(t, cal.Slots, 1)
	assert.Equal(t, created.ID, cal.Slots[0].ID)
	require.Len(t, cal.Days, 1)
	assert.Equal(t, "2031-06-01", cal.Days[0].Date.String())

	require.NoError(t, c.DeleteSlot(ctx, guideID, created.ID))
	cal, err = c.ListAvailability(ctx, guideID, june1, june8, "")
	require.NoError(t, err)
	assert.Empty(t, cal.Slots)
	assert.Equal(t, int32(3), slots.lists.Load())
}

func TestClient_ListAvailability_StaleResponseIsSuperseded(t *testing.T) {
	slots := &fakeSlots{gate: make(chan struct{}), gateFrom: june1, entered: make(chan struct{})}
	c := newClient(t, slots)
	ctx := context.Background()

	stale := make(chan error, 1)
	go func() {
		_, err := c.ListAvailability(ctx, guideID, june1, june8, "")
		stale <- err
	}()
	<-slots.entered

	// The user moved on to the next week while the first request is in flight.
	_, err := c.ListAvailability(ctx, guideID, june8, june8.AddDate(0, 0, 7), "")
	require.NoError(t, err)

	close(slots.gate)
	assert.ErrorIs(t, <-stale, cache.ErrSuperseded)
}

func TestClient_DeleteSlot_ConflictIsTyped(t *testing.T) {
	booked := domain.Slot{ID: uuid.New(), GuideID: guideID, StartTime: june1, DurationHours: 4, Status: domain.SlotBooked}
	c := newClient(t, &fakeSlots{slots: []domain.Slot{booked}})

	err := c.DeleteSlot(context.Background(), guideID, booked.ID)

	require.Error(t, err)
	assert.True(t, apiclient.IsConflict(err))
	var apiErr *apiclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "slot is not open", apiErr.Message)
}

func TestClient_CloseSlot(t *testing.T) {
	open := domain.Slot{ID: uuid.New(), GuideID: guideID, StartTime: june1, DurationHours: 4, Status: domain.SlotOpen}
	c := newClient(t, &fakeSlots{slots: []domain.Slot{open}})

	sl, err := c.CloseSlot(context.Background(), guideID, open.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.SlotClosed, sl.Status)
}
