// Package signature implements the HMAC-SHA256 payload signing scheme used by
// AeroGuard field devices. The firmware serializes the payload JSON, computes
// HMAC-SHA256 over those exact bytes with the device secret, then appends the
// hex digest as a final "signature" member and re-serializes. Verification is
// therefore byte-for-byte: sender and verifier must agree on the serialized
// form, and the verifier recovers the signed bytes by stripping the trailing
// signature member from the raw request body.
package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sign computes the hex-encoded HMAC-SHA256 of payload keyed with secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sigHex is the HMAC-SHA256 of payload under secret.
// The comparison is constant-time.
func Verify(payload []byte, sigHex, secret string) bool {
	supplied, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), supplied)
}

// Strip extracts the top-level "signature" member from a raw JSON body and
// returns the body with that member removed, i.e. the bytes the device
// originally signed. The second return is the signature hex string; found is
// false when the body carries no signature, in which case the body is
// returned unchanged.
//
// The removal is textual: the firmware emits compact JSON with the signature
// appended as the last member, so `,"signature":"<hex>"` is cut out of the
// raw bytes. Clients that serialize differently will not verify; that is the
// byte-for-byte contract, not a bug to paper over here.
func Strip(raw []byte) (canonical []byte, sig string, found bool) {
	var probe struct {
		Signature string `json:"signature"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Signature == "" {
		return raw, "", false
	}

	member := []byte(`"signature":"` + probe.Signature + `"`)
	for _, pattern := range [][]byte{
		append([]byte{','}, member...), // signature mid/end of object
		append(member, ','),            // signature first, comma follows
		member,                         // signature is the only member
	} {
		if idx := bytes.LastIndex(raw, pattern); idx >= 0 {
			out := make([]byte, 0, len(raw)-len(pattern))
			out = append(out, raw[:idx]...)
			out = append(out, raw[idx+len(pattern):]...)
			return out, probe.Signature, true
		}
	}
	// Signature present but serialized in a shape we cannot strip textually
	// (re-ordered keys, whitespace). Verification will fail downstream.
	return raw, probe.Signature, true
}
