package consultation

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/skinclinic/skinclinic/internal/platform/auth"
	"github.com/skinclinic/skinclinic/pkg/civil"
)

func newTestHandler() (*Handler, *testEnv, *echo.Echo) {
	env := newTestEnv()
	return NewHandler(env.svc), env, echo.New()
}

func asUser(req *http.Request, userID uuid.UUID, role string) *http.Request {
	return req.WithContext(auth.ContextWithUser(req.Context(), userID.String(), role))
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func expectHTTPError(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != code {
		t.Errorf("expected status %d, got %d (%v)", code, he.Code, he.Message)
	}
	return he
}

func bookBody(env *testEnv, date string, clock string) string {
	return `{"specialist_id":"` + env.specialist.ID.String() + `","service_id":"` + env.service.ID.String() +
		`","date":"` + date + `","time":"` + clock + `","description":"itchy patch"}`
}

func TestHandler_Book(t *testing.T) {
	h, env, e := newTestHandler()
	env.schedules.set(env.specialist.ID, 0, civil.MustTime(9, 0), civil.MustTime(12, 0))

	req := asUser(jsonRequest(http.MethodPost, bookBody(env, "2026-10-26", "10:00")), env.patient.UserID, auth.RolePatient)
	rec := httptest.NewRecorder()
	if err := h.Book(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var c Consultation
	if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Header().Get(echo.HeaderLocation) != "/api/v1/consultations/confirmation/"+c.BookingID.String() {
		t.Errorf("unexpected Location %q", rec.Header().Get(echo.HeaderLocation))
	}
	if c.Status != StatusScheduled || c.Description != "itchy patch" {
		t.Errorf("unexpected consultation %+v", c)
	}
}

func TestHandler_Book_Rejections(t *testing.T) {
	h, env, e := newTestHandler()
	env.schedules.set(env.specialist.ID, 0, civil.MustTime(9, 0), civil.MustTime(12, 0))
	book := func(date, clock string) error {
		req := asUser(jsonRequest(http.MethodPost, bookBody(env, date, clock)), env.patient.UserID, auth.RolePatient)
		return h.Book(e.NewContext(req, httptest.NewRecorder()))
	}

	if err := book("2026-10-26", "10:00"); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	he := expectHTTPError(t, book("2026-10-26", "10:00"), http.StatusConflict)
	if he.Message != msgSlotTaken {
		t.Errorf("unexpected message %v", he.Message)
	}
	he = expectHTTPError(t, book("2026-10-26", "13:00"), http.StatusUnprocessableEntity)
	if he.Message != "Dr. Jane Mwangi is not available at the selected time." {
		t.Errorf("unexpected message %v", he.Message)
	}
	he = expectHTTPError(t, book("2026-10-01", "10:00"), http.StatusUnprocessableEntity)
	if he.Message != msgPastDate {
		t.Errorf("unexpected message %v", he.Message)
	}
}

func TestHandler_Book_InvalidBody(t *testing.T) {
	h, env, e := newTestHandler()
	req := asUser(jsonRequest(http.MethodPost, `{"specialist_id":"nope","date":"2026-10-26","time":"10:00"}`), env.patient.UserID, auth.RolePatient)
	he := expectHTTPError(t, h.Book(e.NewContext(req, httptest.NewRecorder())), http.StatusBadRequest)
	fields, ok := he.Message.(map[string]string)
	if !ok || fields["specialist_id"] == "" || fields["service_id"] == "" {
		t.Errorf("expected field errors, got %v", he.Message)
	}
}

func TestHandler_Book_TimeRequired(t *testing.T) {
	h, env, e := newTestHandler()
	env.schedules.set(env.specialist.ID, 0, civil.MustTime(0, 0), civil.MustTime(12, 0))
	body := `{"specialist_id":"` + env.specialist.ID.String() + `","service_id":"` + env.service.ID.String() +
		`","date":"2026-10-26"}`
	req := asUser(jsonRequest(http.MethodPost, body), env.patient.UserID, auth.RolePatient)

	he := expectHTTPError(t, h.Book(e.NewContext(req, httptest.NewRecorder())), http.StatusBadRequest)
	fields, ok := he.Message.(map[string]string)
	if !ok || fields["time"] != "This field is required." {
		t.Errorf("expected time field error, got %v", he.Message)
	}
	if len(env.consultations.items) != 0 {
		t.Error("a booking without time must not be stored")
	}
}

func TestErrorResponse_HidesUnexpectedCause(t *testing.T) {
	cause := errors.New("conn closed: unexpected EOF")
	he := expectHTTPError(t, errorResponse(cause), http.StatusInternalServerError)
	if msg, _ := he.Message.(string); strings.Contains(msg, "EOF") {
		t.Errorf("cause leaked to client: %v", he.Message)
	}
	if !errors.Is(he, cause) {
		t.Error("cause should be kept for logging")
	}
}

func TestHandler_Confirmation_NotFound(t *testing.T) {
	h, env, e := newTestHandler()
	c := e.NewContext(asUser(httptest.NewRequest(http.MethodGet, "/", nil), env.patient.UserID, auth.RolePatient), httptest.NewRecorder())
	c.SetParamNames("booking_id")
	c.SetParamValues(uuid.New().String())
	he := expectHTTPError(t, h.Confirmation(c), http.StatusNotFound)
	if he.Message != "Consultation booking not found." {
		t.Errorf("unexpected message %v", he.Message)
	}
}

func TestHandler_UpdateNote(t *testing.T) {
	h, env, e := newTestHandler()
	consultation := env.seed(nextMonday, 10, StatusScheduled, "")

	req := asUser(jsonRequest(http.MethodPut, `{"notes":"Follow up in 2 weeks"}`), env.specialist.UserID, auth.RoleSpecialist)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(consultation.ID.String())
	if err := h.UpdateNote(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Note    Note   `json:"note"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Status != "success" || body.Message != "Notes updated successfully" || body.Note.Content != "Follow up in 2 weeks" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestHandler_Start(t *testing.T) {
	h, env, e := newTestHandler()
	consultation := env.seed(today, 10, StatusScheduled, "")

	rec := httptest.NewRecorder()
	c := e.NewContext(asUser(httptest.NewRequest(http.MethodPost, "/", nil), env.specialist.UserID, auth.RoleSpecialist), rec)
	c.SetParamNames("id")
	c.SetParamValues(consultation.ID.String())
	if err := h.Start(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"in_progress"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c = e.NewContext(asUser(httptest.NewRequest(http.MethodPost, "/", nil), env.specialist.UserID, auth.RoleSpecialist), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(consultation.ID.String())
	expectHTTPError(t, h.NoShow(c), http.StatusConflict)
}

func TestHandler_Dashboard(t *testing.T) {
	h, env, e := newTestHandler()
	env.seed(today, 10, StatusScheduled, "")

	rec := httptest.NewRecorder()
	c := e.NewContext(asUser(httptest.NewRequest(http.MethodGet, "/", nil), env.specialist.UserID, auth.RoleSpecialist), rec)
	if err := h.Dashboard(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var d struct {
		TodayCount  int  `json:"today_count"`
		IsAvailable bool `json:"is_available"`
	}
	json.Unmarshal(rec.Body.Bytes(), &d)
	if d.TodayCount != 1 || !d.IsAvailable {
		t.Errorf("unexpected dashboard %+v", d)
	}
}

func TestHandler_Dashboard_NotSpecialist(t *testing.T) {
	h, env, e := newTestHandler()
	c := e.NewContext(asUser(httptest.NewRequest(http.MethodGet, "/", nil), env.patient.UserID, auth.RolePatient), httptest.NewRecorder())
	expectHTTPError(t, h.Dashboard(c), http.StatusForbidden)
}
