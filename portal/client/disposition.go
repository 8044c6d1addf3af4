package client

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	dispositionFilenameParam = "filename="

	// opening of the quoted base64 "encoded-word" form: "=?utf-8?B?<base64>?="
	encodedWordPrefix = `"=?utf-8?B?`

	// length of the closing `?="` delimiter
	encodedWordSuffixLen = 3
)

// Picks a file name from a Content-Disposition header value, falling back to defaultName.
//
// Everything after the first "filename=" is returned verbatim, including any surrounding quotes or trailing parameters, unless it contains the quoted base64 encoded-word form (`"=?utf-8?B?...?="`), in which case the base64 payload is decoded as UTF-8. Any decoding problem results in defaultName, and so does an encoded-word which decodes to an empty name (rather than an empty string). A header which starts with "filename=" (no disposition type) is treated as having no file name.
//
// This function never fails and has no side effects; see [ResolveFilenameLogged] to observe decoding problems.
func ResolveFilename(headerValue, defaultName string) string {
	return ResolveFilenameLogged(nil, headerValue, defaultName)
}

// Same as [ResolveFilename], but decoding problems are logged at debug level to the provided logger (which may be nil).
func ResolveFilenameLogged(logger *slog.Logger, headerValue, defaultName string) string {
	name, found, err := dispositionFilename(headerValue)
	if err != nil {
		if logger != nil {
			logger.Debug("falling back to default download file name", "content_disposition", headerValue, "default", defaultName, "err", err)
		}
		return defaultName
	}
	if !found {
		return defaultName
	}
	return name
}

func dispositionFilename(headerValue string) (string, bool, error) {
	idx := strings.Index(headerValue, dispositionFilenameParam)
	if idx <= 0 {
		return "", false, nil
	}
	candidate := headerValue[idx+len(dispositionFilenameParam):]

	wordIdx := strings.Index(candidate, encodedWordPrefix)
	if wordIdx == -1 {
		return candidate, true, nil
	}

	start := wordIdx + len(encodedWordPrefix)
	end := len(candidate) - encodedWordSuffixLen
	if end < start {
		return "", false, fmt.Errorf("truncated encoded-word file name")
	}

	raw, err := decodeForgivingBase64(candidate[start:end])
	if err != nil {
		return "", false, fmt.Errorf("invalid base64 in encoded-word file name: %w", err)
	}

	// each decoded byte becomes a %XX escape, and the whole sequence is then percent-decoded as UTF-8
	var sb strings.Builder
	for _, b := range raw {
		fmt.Fprintf(&sb, "%%%02x", b)
	}
	name, err := url.PathUnescape(sb.String())
	if err != nil {
		return "", false, err
	}
	if !utf8.ValidString(name) {
		return "", false, errors.New("encoded-word file name is not valid UTF-8")
	}
	if name == "" {
		return "", false, errors.New("encoded-word file name is empty")
	}
	return name, true, nil
}

// Decodes base64 the way browsers do for atob(): ASCII whitespace is ignored and trailing padding is optional.
func decodeForgivingBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\f', '\r':
			return -1
		}
		return r
	}, s)
	if len(s)%4 == 0 {
		s = strings.TrimSuffix(s, "=")
		s = strings.TrimSuffix(s, "=")
	}
	if len(s)%4 == 1 {
		return nil, errors.New("invalid base64 length")
	}
	return base64.RawStdEncoding.DecodeString(s)
}
