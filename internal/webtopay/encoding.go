package webtopay

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// EncodeData serializes fields as a sorted query string wrapped in URL-safe base64.
func EncodeData(fields map[string]string) string {
	q := url.Values{}
	for k, v := range fields {
		q.Set(k, v)
	}
	return base64.URLEncoding.EncodeToString([]byte(q.Encode()))
}

// DecodeData reverses EncodeData. Repeated keys keep their first value.
func DecodeData(data string) (map[string]string, error) {
	raw, err := decodeBase64(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	q, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	fields := make(map[string]string, len(q))
	for k, v := range q {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields, nil
}

// decodeBase64 accepts both the URL-safe and the standard alphabet, padded or not.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	s = strings.TrimRight(s, "=")
	return base64.RawStdEncoding.DecodeString(s)
}
