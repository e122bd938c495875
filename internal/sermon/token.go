package sermon

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Playback tokens tie telemetry posts (views, notes) to a served watch
// session. They are minted with the watch payload and verified on every
// telemetry endpoint, so the content-view endpoint cannot be fed arbitrary
// sermon ids.

const playbackTokenDuration = 6 * time.Hour

type playbackClaims struct {
	SermonID   string `json:"sermonId"`
	ShareToken string `json:"shareToken"`
	jwt.RegisteredClaims
}

func mintPlaybackToken(secret, sermonID, shareToken string) (string, error) {
	claims := &playbackClaims{
		SermonID:   sermonID,
		ShareToken: shareToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(playbackTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func validatePlaybackToken(secret, tokenStr string) (*playbackClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &playbackClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse playback token: %w", err)
	}
	claims, ok := token.Claims.(*playbackClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid playback token")
	}
	return claims, nil
}

// playbackClaimsFromRequest extracts and validates the bearer playback
// token.
func (h *Handler) playbackClaimsFromRequest(r *http.Request) (*playbackClaims, error) {
	header := r.Header.Get("Authorization")
	tokenStr, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenStr == "" {
		return nil, fmt.Errorf("missing playback token")
	}
	return validatePlaybackToken(h.tokenSecret, tokenStr)
}
