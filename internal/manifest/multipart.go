package manifest

import (
	"bytes"
	"strings"

	"github.com/google/uuid"
)

// Envelope is a manifest/extensions multipart/mixed body, bit-exact
// per spec.md §6: two form-data parts, CRLF-terminated, a random
// boundary, and the expo-signature part header present only when the
// response carries one. Hand-rolled rather than mime/multipart.Writer
// because that writer's CreatePart iterates its header map in
// non-deterministic order, and part header order here is contract.
type Envelope struct {
	Boundary    string
	ContentType string
	Body        []byte
}

// Encode builds the multipart envelope for resp.
func Encode(resp *Response) Envelope {
	boundary := "expo-" + strings.ReplaceAll(uuid.NewString(), "-", "")

	var buf bytes.Buffer
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString("Content-Disposition: form-data; name=\"manifest\"\r\n")
	buf.WriteString("Content-Type: application/json; charset=utf-8\r\n")
	if resp.SignatureHeader != "" {
		buf.WriteString("expo-signature: " + resp.SignatureHeader + "\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(resp.ManifestJSON)
	buf.WriteString("\r\n")
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString("Content-Disposition: form-data; name=\"extensions\"\r\n")
	buf.WriteString("Content-Type: application/json\r\n")
	buf.WriteString("\r\n")
	buf.WriteString("{}\r\n")
	buf.WriteString("--" + boundary + "--\r\n")

	return Envelope{
		Boundary:    boundary,
		ContentType: "multipart/mixed; boundary=" + boundary,
		Body:        buf.Bytes(),
	}
}
