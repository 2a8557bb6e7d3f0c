// Package contenthash computes the dedup fingerprint of workflow documents.
package contenthash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Fingerprint returns the lowercase hex SHA-256 of the canonical form of
// text. Text that is not valid JSON is hashed verbatim.
func Fingerprint(text []byte) string {
	canonical, err := Canonicalize(text)
	if err != nil {
		return HashBytes(text)
	}
	return HashBytes(canonical)
}

// FingerprintString is Fingerprint for string input.
func FingerprintString(text string) string {
	return Fingerprint([]byte(text))
}

// Canonicalize re-serializes a JSON value with map keys sorted and no
// insignificant whitespace. Integer literals keep their text so large ids
// stay exact; other numbers are rewritten in shortest float form, so 2.50
// and 2.5 are the same value.
func Canonicalize(text []byte) ([]byte, error) {
	if !json.Valid(text) {
		return nil, fmt.Errorf("canonicalize: invalid JSON")
	}

	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalizeNumbers(v)); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
	case json.Number:
		lit := t.String()
		if !strings.ContainsAny(lit, ".eE") {
			return t
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return t
		}
		return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
	}
	return v
}

// HashBytes hashes b without any normalization.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
