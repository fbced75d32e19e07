// Package pemcodec normalizes, validates, and reshapes PEM blocks for
// certificates and private keys, per spec.md §4.1.
package pemcodec

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
)

// Failure modes. Each is a distinct error kind a caller can match on
// with errors.Is.
var (
	ErrMissingHeader     = errors.New("pem: missing header")
	ErrMissingFooter     = errors.New("pem: missing footer")
	ErrMalformedStructure = errors.New("pem: malformed structure")
	ErrEmptyBody         = errors.New("pem: empty body")
	ErrInvalidBase64     = errors.New("pem: body is not valid base64")
)

var blankRunRe = regexp.MustCompile(`\n{3,}`)

// certificateMarkers is the only marker pair accepted for certificates.
var certificateMarkers = []string{"CERTIFICATE"}

// privateKeyMarkers are the marker pairs accepted for private keys.
// RSA PRIVATE KEY is PKCS#1; PRIVATE KEY is PKCS#8; EC PRIVATE KEY is
// an EC key. The codec accepts and normalizes all three — rejecting
// PKCS#1 for signing purposes is the Signer's job, not the codec's.
var privateKeyMarkers = []string{"PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY"}

// Result is a normalized PEM block plus the marker it was recognized
// under (e.g. "CERTIFICATE", "RSA PRIVATE KEY").
type Result struct {
	PEM    string
	Marker string
}

// NormalizeCertificate normalizes a certificate PEM block. The only
// accepted marker pair is BEGIN/END CERTIFICATE.
func NormalizeCertificate(pem string) (Result, error) {
	return normalize(pem, certificateMarkers)
}

// NormalizePrivateKey normalizes a private key PEM block. Accepted
// marker pairs: PRIVATE KEY, RSA PRIVATE KEY, EC PRIVATE KEY.
func NormalizePrivateKey(pem string) (Result, error) {
	return normalize(pem, privateKeyMarkers)
}

func normalize(input string, allowed []string) (Result, error) {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")

	headerIdx, headerMarker, headerLineEnd := findMarkerLine(s, "BEGIN", allowed)
	if headerIdx < 0 {
		return Result{}, ErrMissingHeader
	}

	rest := s[headerLineEnd:]
	footerIdx, footerMarker, _ := findMarkerLine(rest, "END", allowed)
	if footerIdx < 0 {
		return Result{}, ErrMissingFooter
	}
	if footerMarker != headerMarker {
		return Result{}, ErrMalformedStructure
	}

	body := rest[:footerIdx]
	body = stripWhitespace(body)
	if body == "" {
		return Result{}, ErrEmptyBody
	}

	decoded, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return Result{}, ErrInvalidBase64
	}
	// re-encode to guarantee canonical padding/casing, then re-wrap.
	canonical := base64.StdEncoding.EncodeToString(decoded)
	wrapped := wrap64(canonical)

	out := "-----BEGIN " + headerMarker + "-----\n" + wrapped + "\n-----END " + headerMarker + "-----\n"
	return Result{PEM: out, Marker: headerMarker}, nil
}

// findMarkerLine locates a line of the form "-----<kind> <MARKER>-----"
// where MARKER is one of allowed. Returns the index of the match start,
// the matched marker, and the offset immediately after the matched line
// (including its trailing newline, if present).
func findMarkerLine(s string, kind string, allowed []string) (idx int, marker string, lineEnd int) {
	for _, m := range allowed {
		token := "-----" + kind + " " + m + "-----"
		i := strings.Index(s, token)
		if i < 0 {
			continue
		}
		end := i + len(token)
		if end < len(s) && s[end] == '\n' {
			end++
		}
		return i, m, end
	}
	return -1, "", 0
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func wrap64(s string) string {
	const width = 64
	if len(s) <= width {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i += width {
		end := i + width
		if end > len(s) {
			end = len(s)
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s[i:end])
	}
	return b.String()
}
