package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// initData older than this is treated as a replay attempt.
	initDataMaxAge = time.Hour
	// tolerated forward clock skew between Telegram and this host
	initDataMaxSkew = 5 * time.Minute
)

// initDataHash computes the HMAC over the sorted key=value lines of the
// init_data fields, keyed by sha256 of the bot token.
func initDataHash(values url.Values, botToken string) []byte {
	lines := make([]string, 0, len(values))
	for k, v := range values {
		lines = append(lines, k+"="+strings.Join(v, ""))
	}
	sort.Strings(lines)

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	return mac.Sum(nil)
}

// ValidateTelegramInitData verifies the Telegram WebApp init_data signature
// and rejects stale payloads. On success it returns the parsed fields with
// the hash removed.
func ValidateTelegramInitData(initData, botToken string) (url.Values, bool) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, false
	}

	providedHex := values.Get("hash")
	if providedHex == "" {
		return nil, false
	}
	values.Del("hash")

	provided, err := hex.DecodeString(providedHex)
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(initDataHash(values, botToken), provided) {
		return nil, false
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil || authDate == 0 {
		return nil, false
	}

	age := time.Now().Unix() - authDate
	if age > int64(initDataMaxAge.Seconds()) || -age > int64(initDataMaxSkew.Seconds()) {
		return nil, false
	}

	return values, true
}
