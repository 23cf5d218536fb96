package messenger

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"strings"
)

// SignatureHeader carries the app secret proof of the request body.
const SignatureHeader = "X-Hub-Signature-256"

// VerifySignature checks the sha256 app secret signature over the raw
// request body. The header value has the form "sha256=<hex digest>".
func VerifySignature(appSecret string, rawBody []byte, header string) bool {
	digest, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(digest)) == 1
}

// VerifyWebhook checks the GET subscription handshake query parameters
// and returns the challenge to echo back on success.
func VerifyWebhook(verifyToken string, query url.Values) (string, bool) {
	if query.Get("hub.mode") != "subscribe" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(query.Get("hub.verify_token")), []byte(verifyToken)) != 1 {
		return "", false
	}
	return query.Get("hub.challenge"), true
}
