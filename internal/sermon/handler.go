package sermon

import (
	"context"
	"time"

	"github.com/gracestream/gracestream/internal/database"
	"github.com/gracestream/gracestream/internal/geoip"
)

// ObjectStorage is the storage surface the sermon handlers need.
type ObjectStorage interface {
	GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// GeoResolver enriches views with a coarse location.
type GeoResolver interface {
	Lookup(ip string) (country, city string)
}

// Handler serves the watch payload and the telemetry endpoints the playback
// controller posts to.
type Handler struct {
	db            database.DBTX
	storage       ObjectStorage
	geoResolver   GeoResolver
	tokenSecret   string
	hmacSecret    string
	secureCookies bool
}

func NewHandler(db database.DBTX, storage ObjectStorage, geo GeoResolver, tokenSecret, hmacSecret string, secureCookies bool) *Handler {
	if geo == nil {
		geo, _ = geoip.New("")
	}
	return &Handler{
		db:            db,
		storage:       storage,
		geoResolver:   geo,
		tokenSecret:   tokenSecret,
		hmacSecret:    hmacSecret,
		secureCookies: secureCookies,
	}
}
