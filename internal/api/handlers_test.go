package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/secondheart/scheduling/internal/redis"
	"github.com/secondheart/scheduling/internal/schedule"
)

type testServer struct {
	handler  http.Handler
	repo     *schedule.MemoryRepository
	provider schedule.Provider
	patient  schedule.Patient
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := schedule.NewMemoryRepository()
	svc := schedule.NewService(repo, redisclient.NewNopLocker(), zerolog.Nop()).
		WithClock(func() time.Time { return time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC) })

	provider := schedule.Provider{ID: uuid.New(), Name: "Dr. Quinn", AppointmentDuration: 30, Active: true}
	repo.PutProvider(provider)
	patient := schedule.Patient{ID: uuid.New(), Name: "John Doe"}
	repo.PutPatient(patient)

	handler := NewRouter(RouterConfig{
		Service: svc,
		Logger:  zerolog.Nop(),
		Env:     "test",
		Version: "test",
	})
	return &testServer{handler: handler, repo: repo, provider: provider, patient: patient}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.ContentLength = int64(buf.Len())
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst), "body: %s", rec.Body.String())
}

func intervalBody(day int, segment, start, end string) map[string]any {
	return map[string]any{
		"day_of_week": day,
		"segment":     segment,
		"start_time":  start,
		"end_time":    end,
	}
}

func TestWorkingIntervalEndpoints(t *testing.T) {
	ts := newTestServer(t)
	base := fmt.Sprintf("/providers/%s/working-intervals", ts.provider.ID)

	rec := ts.do(t, http.MethodPost, base, intervalBody(1, "before_break", "09:00", "12:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created WorkingIntervalResponse
	decodeInto(t, rec, &created)
	assert.Equal(t, ts.provider.ID, created.ProviderID)
	assert.Equal(t, "09:00", created.StartTime.String())

	// Overlapping window on the same day.
	rec = ts.do(t, http.MethodPost, base, intervalBody(1, "after_break", "11:30", "14:00"))
	require.Equal(t, http.StatusConflict, rec.Code)
	var apiErr ErrorResponse
	decodeInto(t, rec, &apiErr)
	assert.Equal(t, "interval_conflict", apiErr.Error)

	// Malformed interval.
	rec = ts.do(t, http.MethodPost, base, intervalBody(9, "before_break", "09:00", "12:00"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var intervals []WorkingIntervalResponse
	decodeInto(t, rec, &intervals)
	require.Len(t, intervals, 1)

	rec = ts.do(t, http.MethodPut, "/working-intervals/"+created.ID.String(),
		intervalBody(1, "before_break", "08:30", "12:00"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated WorkingIntervalResponse
	decodeInto(t, rec, &updated)
	assert.Equal(t, "08:30", updated.StartTime.String())

	rec = ts.do(t, http.MethodDelete, "/working-intervals/"+created.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/working-intervals/"+created.ID.String(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/providers/not-a-uuid/working-intervals",
		intervalBody(1, "before_break", "09:00", "12:00"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleAndBookingFlow(t *testing.T) {
	ts := newTestServer(t)
	providerID := ts.provider.ID.String()

	rec := ts.do(t, http.MethodPost, "/providers/"+providerID+"/working-intervals",
		intervalBody(1, "before_break", "09:00", "12:00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/providers/"+providerID+"/schedule/regenerate",
		map[string]any{"horizon_days": 14})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var regen RegenerateResponse
	decodeInto(t, rec, &regen)
	assert.Equal(t, 18, regen.CreatedSlots)
	assert.Equal(t, "2024-06-10", regen.RangeStart)
	assert.Equal(t, "2024-06-24", regen.RangeEnd)

	rec = ts.do(t, http.MethodGet, "/providers/"+providerID+"/slots?date=2024-06-10&status=free", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []SlotResponse
	decodeInto(t, rec, &slots)
	require.Len(t, slots, 6)

	claim := map[string]any{"slot_id": slots[0].ID.String(), "patient_id": ts.patient.ID.String()}
	rec = ts.do(t, http.MethodPost, "/appointments", claim)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var appt AppointmentResponse
	decodeInto(t, rec, &appt)
	assert.Equal(t, slots[0].ID, appt.SlotID)
	assert.Equal(t, "scheduled", appt.Status)

	// The slot is gone; a second claim conflicts.
	rec = ts.do(t, http.MethodPost, "/appointments", claim)
	require.Equal(t, http.StatusConflict, rec.Code)
	var apiErr ErrorResponse
	decodeInto(t, rec, &apiErr)
	assert.Equal(t, "slot_unavailable", apiErr.Error)

	rec = ts.do(t, http.MethodGet, "/appointments/"+appt.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail AppointmentResponse
	decodeInto(t, rec, &detail)
	require.NotNil(t, detail.Slot)
	assert.Equal(t, "booked", detail.Slot.Status)

	rec = ts.do(t, http.MethodPatch, "/appointments/"+appt.ID.String(), map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/providers/"+providerID+"/slots?status=completed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &slots)
	require.Len(t, slots, 1)

	rec = ts.do(t, http.MethodPatch, "/appointments/"+appt.ID.String(), map[string]any{"status": "no-show"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/appointments?patient_id="+ts.patient.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []AppointmentResponse
	decodeInto(t, rec, &list)
	require.Len(t, list, 1)

	rec = ts.do(t, http.MethodGet, "/appointments", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/appointments/"+appt.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/appointments/"+appt.ID.String(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkDeleteFreeSlots(t *testing.T) {
	ts := newTestServer(t)
	providerID := ts.provider.ID.String()

	rec := ts.do(t, http.MethodPost, "/providers/"+providerID+"/working-intervals",
		intervalBody(1, "before_break", "09:00", "12:00"))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodPost, "/providers/"+providerID+"/schedule/regenerate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/providers/"+providerID+"/slots/free", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp BulkDeleteResponse
	decodeInto(t, rec, &resp)
	assert.Equal(t, int64(18), resp.DeletedSlots)

	rec = ts.do(t, http.MethodGet, "/providers/"+providerID+"/slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []SlotResponse
	decodeInto(t, rec, &slots)
	assert.Empty(t, slots)

	rec = ts.do(t, http.MethodDelete, "/providers/"+uuid.NewString()+"/slots/free", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
