package photo

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/skinclinic/skinclinic/internal/platform/auth"
)

func newTestHandler() (*Handler, *testEnv, *echo.Echo) {
	env := newTestEnv()
	return NewHandler(env.svc), env, echo.New()
}

func multipartRequest(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="rash.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	w.WriteField("description", "cheek")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func asPatient(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(auth.ContextWithUser(req.Context(), userID.String(), auth.RolePatient))
}

func TestHandler_UploadAndDownload(t *testing.T) {
	h, env, e := newTestHandler()
	userID := env.addPatient()

	rec := httptest.NewRecorder()
	req := asPatient(multipartRequest(t, "image/png", []byte("pngbytes")), userID)
	if err := h.Upload(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"description":"cheek"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "skin-photos/") {
		t.Error("object key should not be exposed")
	}

	var id uuid.UUID
	for pid := range env.repo.items {
		id = pid
	}
	rec = httptest.NewRecorder()
	c := e.NewContext(asPatient(httptest.NewRequest(http.MethodGet, "/", nil), userID), rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	if err := h.Content(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != "pngbytes" || rec.Header().Get(echo.HeaderContentType) != "image/png" {
		t.Errorf("unexpected download %q %q", rec.Body.String(), rec.Header().Get(echo.HeaderContentType))
	}
}

func TestHandler_Upload_UnsupportedType(t *testing.T) {
	h, env, e := newTestHandler()
	req := asPatient(multipartRequest(t, "text/plain", []byte("hello")), env.addPatient())
	err := h.Upload(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %v", err)
	}
}

func TestHandler_Upload_MissingFile(t *testing.T) {
	h, env, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	req.Header.Set(echo.HeaderContentType, echo.MIMEMultipartForm+"; boundary=x")
	err := h.Upload(e.NewContext(asPatient(req, env.addPatient()), httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
