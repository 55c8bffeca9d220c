package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

// buildInitData builds a valid init_data string for tests using the same
// algorithm as ValidateTelegramInitData.
func buildInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	var parts []string
	for k, v := range fields {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	dataString := strings.Join(parts, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(dataString))
	hash := hex.EncodeToString(mac.Sum(nil))

	vals := url.Values{}
	for k, v := range fields {
		vals.Add(k, v)
	}
	vals.Add("hash", hash)
	return vals.Encode()
}

func TestValidateTelegramInitData_Valid(t *testing.T) {
	botToken := "test-bot-token"
	fields := map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":42,"username":"miner","first_name":"M"}`,
	}

	values, ok := ValidateTelegramInitData(buildInitData(t, botToken, fields), botToken)
	if !ok {
		t.Fatal("expected valid init data")
	}
	if values.Get("user") != fields["user"] {
		t.Fatalf("user field mangled: %q", values.Get("user"))
	}
}

func TestValidateTelegramInitData_WrongToken(t *testing.T) {
	fields := map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":42}`,
	}

	if _, ok := ValidateTelegramInitData(buildInitData(t, "token-a", fields), "token-b"); ok {
		t.Fatal("expected rejection for mismatched bot token")
	}
}

func TestValidateTelegramInitData_Stale(t *testing.T) {
	botToken := "test-bot-token"
	fields := map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Add(-2*time.Hour).Unix(), 10),
		"user":      `{"id":42}`,
	}

	if _, ok := ValidateTelegramInitData(buildInitData(t, botToken, fields), botToken); ok {
		t.Fatal("expected rejection for stale auth_date")
	}
}

func TestValidateTelegramInitData_MissingHash(t *testing.T) {
	if _, ok := ValidateTelegramInitData("auth_date=123&user=%7B%7D", "token"); ok {
		t.Fatal("expected rejection when hash is absent")
	}
}
