package sermon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func watchRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/api/watch/{shareToken}", func(r chi.Router) {
		r.Get("/", h.Watch)
		r.Post("/password", h.VerifyWatchPassword)
		r.Post("/view", h.RecordView)
		r.Post("/notes", h.RecordNote)
	})
	return r
}

const watchQuery = `SELECT id, title, speaker, duration, file_key, poster_key, share_password`

func watchColumns() []string {
	return []string{"id", "title", "speaker", "duration", "file_key", "poster_key", "share_password",
		"transcript_json", "chapters_json", "ads_json", "watermark_text", "created_at"}
}

func TestWatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	h := NewHandler(mock, &mockStorage{}, stubGeo{}, testTokenSecret, testHMACSecret, false)

	transcript := `[{"start":0,"end":8,"text":"for by grace"}]`
	chapters := `[{"id":"intro","title":"Introduction","startTime":0}]`
	ads := `[{"id":"pre-1","type":"pre-roll","mediaUrl":"https://ads.example.com/pre.mp4","duration":15}]`
	watermarkText := "Grace Community Church"
	created := time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(watchQuery).
		WithArgs("share-abc").
		WillReturnRows(pgxmock.NewRows(watchColumns()).
			AddRow("sermon-1", "Amazing Grace", "Pastor John", 1820.5, "videos/sermon-1.mp4",
				strPtr("posters/sermon-1.jpg"), (*string)(nil), &transcript, &chapters, &ads, &watermarkText, created))

	rec := httptest.NewRecorder()
	watchRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watch/share-abc", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp watchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SermonID != "sermon-1" || resp.Title != "Amazing Grace" || resp.Speaker != "Pastor John" {
		t.Errorf("unexpected payload: %+v", resp)
	}
	if resp.VideoURL != "https://media.example.com/videos/sermon-1.mp4?sig=test" {
		t.Errorf("VideoURL = %q", resp.VideoURL)
	}
	if resp.PosterURL != "https://media.example.com/posters/sermon-1.jpg?sig=test" {
		t.Errorf("PosterURL = %q", resp.PosterURL)
	}
	if len(resp.Transcript) != 1 || resp.Transcript[0].Text != "for by grace" {
		t.Errorf("Transcript = %+v", resp.Transcript)
	}
	if len(resp.Chapters) != 1 || resp.Chapters[0].ID != "intro" {
		t.Errorf("Chapters = %+v", resp.Chapters)
	}
	if len(resp.Ads) != 1 || resp.Ads[0].ID != "pre-1" {
		t.Errorf("Ads = %+v", resp.Ads)
	}
	if resp.Watermark == nil || resp.Watermark.Text != watermarkText {
		t.Errorf("Watermark = %+v", resp.Watermark)
	}

	claims, err := validatePlaybackToken(testTokenSecret, resp.PlaybackToken)
	if err != nil {
		t.Fatalf("playback token invalid: %v", err)
	}
	if claims.SermonID != "sermon-1" || claims.ShareToken != "share-abc" {
		t.Errorf("token claims = %+v", claims)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestWatch_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	h := NewHandler(mock, &mockStorage{}, stubGeo{}, testTokenSecret, testHMACSecret, false)

	mock.ExpectQuery(watchQuery).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	rec := httptest.NewRecorder()
	watchRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watch/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestWatch_PasswordRequired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	h := NewHandler(mock, &mockStorage{}, stubGeo{}, testTokenSecret, testHMACSecret, false)

	hash, err := HashSharePassword("sunday-service")
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery(watchQuery).
		WithArgs("share-abc").
		WillReturnRows(pgxmock.NewRows(watchColumns()).
			AddRow("sermon-1", "Amazing Grace", "Pastor John", 1820.5, "videos/sermon-1.mp4",
				(*string)(nil), &hash, (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), time.Now()))

	rec := httptest.NewRecorder()
	watchRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watch/share-abc", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestWatch_PasswordCookieAccepted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	h := NewHandler(mock, &mockStorage{}, stubGeo{}, testTokenSecret, testHMACSecret, false)

	hash, err := HashSharePassword("sunday-service")
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery(watchQuery).
		WithArgs("share-abc").
		WillReturnRows(pgxmock.NewRows(watchColumns()).
			AddRow("sermon-1", "Amazing Grace", "Pastor John", 1820.5, "videos/sermon-1.mp4",
				(*string)(nil), &hash, (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/api/watch/share-abc", nil)
	req.AddCookie(&http.Cookie{
		Name:  watchCookieName("share-abc"),
		Value: signWatchCookie(testHMACSecret, "share-abc", hash),
	})

	rec := httptest.NewRecorder()
	watchRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestWatch_StorageFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	h := NewHandler(mock, &mockStorage{failDownload: true}, stubGeo{}, testTokenSecret, testHMACSecret, false)

	mock.ExpectQuery(watchQuery).
		WithArgs("share-abc").
		WillReturnRows(pgxmock.NewRows(watchColumns()).
			AddRow("sermon-1", "Amazing Grace", "Pastor John", 1820.5, "videos/sermon-1.mp4",
				(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), time.Now()))

	rec := httptest.NewRecorder()
	watchRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watch/share-abc", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func strPtr(s string) *string { return &s }
