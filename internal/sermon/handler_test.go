package sermon

import (
	"context"
	"fmt"
	"time"
)

const (
	testTokenSecret = "test-playback-secret"
	testHMACSecret  = "test-cookie-secret"
)

type mockStorage struct {
	failDownload bool
}

func (m *mockStorage) GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.failDownload {
		return "", fmt.Errorf("storage unavailable")
	}
	return "https://media.example.com/" + key + "?sig=test", nil
}

type stubGeo struct {
	country string
	city    string
}

func (g stubGeo) Lookup(ip string) (string, string) {
	return g.country, g.city
}
