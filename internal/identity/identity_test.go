package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(r *http.Request) (device, session string, w *httptest.ResponseRecorder) {
	w = httptest.NewRecorder()
	Middleware(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		device = DeviceIDFromContext(r.Context())
		session = SessionIDFromContext(r.Context())
	})).ServeHTTP(w, r)
	return device, session, w
}

func TestMiddlewareIssuesDeviceCookie(t *testing.T) {
	device, session, w := serve(httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	if !isValidDeviceID(device) {
		t.Fatalf("invalid device id %q", device)
	}
	if session != DefaultSessionIDValue {
		t.Errorf("session = %q, want default", session)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != device {
		t.Fatalf("expected device cookie, got %v", cookies)
	}
}

func TestMiddlewareKeepsValidCookieAndReadsHeader(t *testing.T) {
	const id = "dev_0123456789abcdef0123456789abcdef"
	r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	r.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: id})
	r.Header.Set(SessionHeaderName, "tab-42")

	device, session, _ := serve(r)
	if device != id {
		t.Errorf("device = %q, want %q", device, id)
	}
	if session != "tab-42" {
		t.Errorf("session = %q, want tab-42", session)
	}
}

func TestMiddlewareReplacesForgedCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: "../../etc"})

	device, _, _ := serve(r)
	if device == "../../etc" || !isValidDeviceID(device) {
		t.Errorf("forged cookie accepted: %q", device)
	}
}

func TestSanitizeSessionID(t *testing.T) {
	tests := map[string]string{
		"":            DefaultSessionIDValue,
		"  ":          DefaultSessionIDValue,
		"tab 1":       DefaultSessionIDValue,
		"session_1_a": "session_1_a",
	}
	for in, want := range tests {
		if got := sanitizeSessionID(in); got != want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", in, got, want)
		}
	}
}
