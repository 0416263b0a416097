package fetch

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DetectEncoding returns the HTTP-declared charset, else the one named by a
// BOM or <meta> tag in the document head, else "utf-8".
func DetectEncoding(body []byte, contentType string) string {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs := params["charset"]; cs != "" {
			if name := canonicalName(cs); name != "" {
				return name
			}
		}
	}

	// DetermineEncoding falls back to windows-1252 when the document names
	// nothing; that case is reported as utf-8.
	_, name, _ := charset.DetermineEncoding(body, "")
	if name == "" || name == "windows-1252" && !declaresCharset(body) {
		return "utf-8"
	}
	return name
}

// ToUTF8 converts body from the named encoding to UTF-8.
func ToUTF8(body []byte, encoding string) ([]byte, error) {
	name := canonicalName(encoding)
	if name == "" || name == "utf-8" {
		return bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")), nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", encoding, err)
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", name, err)
	}
	return out, nil
}

func canonicalName(label string) string {
	label = strings.Trim(strings.ToLower(strings.TrimSpace(label)), `"'`)
	if label == "" {
		return ""
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return ""
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return ""
	}
	return name
}

func declaresCharset(body []byte) bool {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("charset"))
}
