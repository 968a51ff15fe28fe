package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrBadSignature = errors.New("webhook signature verification failed")

// VerifySignature checks the gateway's x-signature header against the shared
// webhook secret. The header carries "ts=<unix>,v1=<hex hmac>" and the HMAC
// is computed over the manifest "id:<dataID>;request-id:<requestID>;ts:<ts>;".
// Any missing or malformed piece fails closed.
func VerifySignature(xSignature, xRequestID, dataID, secret string) error {
	if xSignature == "" || secret == "" {
		return ErrBadSignature
	}

	var ts, v1 string
	for _, part := range strings.Split(xSignature, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "v1":
			v1 = v
		}
	}
	if ts == "" || v1 == "" {
		return ErrBadSignature
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, xRequestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	want := mac.Sum(nil)

	got, err := hex.DecodeString(v1)
	if err != nil || !hmac.Equal(got, want) {
		return ErrBadSignature
	}
	return nil
}

// SignManifest produces the v1 digest for a manifest; used by tests to build
// valid headers.
func SignManifest(dataID, requestID, ts, secret string) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}
