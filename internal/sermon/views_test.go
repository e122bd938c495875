package sermon

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

const testUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func viewRequest(t *testing.T, shareToken string, body recordViewRequest) *http.Request {
	t.Helper()
	token, err := mintPlaybackToken(testTokenSecret, "sermon-1", shareToken)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	payload, _ := json.Marshal(body)
	r := httptest.NewRequest(http.MethodPost, "/api/watch/"+shareToken+"/view", bytes.NewReader(payload))
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set("User-Agent", testUA)
	r.Header.Set("Referer", "https://www.youtube.com/watch?v=abc")
	r.RemoteAddr = "203.0.113.9:4000"
	return r
}

func TestRecordView(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	h := NewHandler(mock, &mockStorage{}, stubGeo{country: "Germany", city: "Berlin"}, testTokenSecret, testHMACSecret, false)

	mock.ExpectExec(`INSERT INTO sermon_views`).
		WithArgs("sermon-1", "sess-1", viewerHash("203.0.113.9:4000", testUA),
			"desktop", "Chrome", "YouTube", "720p", "Germany", "Berlin").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := httptest.NewRecorder()
	watchRouter(h).ServeHTTP(rec, viewRequest(t, "share-abc", recordViewRequest{
		SessionID:   "sess-1",
		DeviceClass: "desktop",
		Quality:     "720p",
	}))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestRecordView_DeviceFallbackFromUserAgent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	h := NewHandler(mock, &mockStorage{}, stubGeo{}, testTokenSecret, testHMACSecret, false)

	mock.ExpectExec(`INSERT INTO sermon_views`).
		WithArgs("sermon-1", "sess-1", viewerHash("203.0.113.9:4000", testUA),
			"Desktop", "Chrome", "YouTube", "auto", "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := httptest.NewRecorder()
	watchRouter(h).ServeHTTP(rec, viewRequest(t, "share-abc", recordViewRequest{
		SessionID: "sess-1",
		Quality:   "auto",
	}))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestRecordView_MissingToken(t *testing.T) {
	h := NewHandler(nil, &mockStorage{}, stubGeo{}, testTokenSecret, testHMACSecret, false)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/watch/share-abc/view", bytes.NewReader([]byte(`{}`)))
	watchRouter(h).ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRecordView_TokenForOtherSermon(t *testing.T) {
	h := NewHandler(nil, &mockStorage{}, stubGeo{}, testTokenSecret, testHMACSecret, false)

	// Token minted for share-abc must not authorize posts against share-xyz.
	rec := httptest.NewRecorder()
	r := viewRequest(t, "share-abc", recordViewRequest{SessionID: "sess-1"})
	r.URL.Path = "/api/watch/share-xyz/view"
	watchRouter(h).ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRecordView_InsertFailureStillAccepted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	h := NewHandler(mock, &mockStorage{}, stubGeo{}, testTokenSecret, testHMACSecret, false)

	mock.ExpectExec(`INSERT INTO sermon_views`).
		WillReturnError(errors.New("connection reset"))

	rec := httptest.NewRecorder()
	watchRouter(h).ServeHTTP(rec, viewRequest(t, "share-abc", recordViewRequest{
		SessionID:   "sess-1",
		DeviceClass: "desktop",
	}))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204 despite storage failure", rec.Code)
	}
}
