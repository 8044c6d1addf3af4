package client

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFilename(t *testing.T) {
	assert := assert.New(t)

	testVec := []struct {
		header string
		def    string
		expect string
	}{
		// no header
		{"", "file.bin", "file.bin"},
		// no filename param
		{"garbage-no-filename-marker", "default.bin", "default.bin"},
		{"attachment", "file.bin", "file.bin"},
		// header starting with the param has no disposition type
		{"filename=report.pdf", "file.bin", "file.bin"},
		// literal names are returned verbatim, quotes and trailing params included
		{`attachment; filename="report.pdf"`, "file.bin", `"report.pdf"`},
		{`attachment; filename=report.pdf`, "file.bin", `report.pdf`},
		{`attachment; filename="a.pdf"; size=10`, "file.bin", `"a.pdf"; size=10`},
		{`attachment; filename=`, "file.bin", ``},
		// encoded-word form
		{`attachment; filename="=?utf-8?B?aMOpbGxvLnR4dA==?="`, "file.bin", "héllo.txt"},
		{`attachment; filename="=?utf-8?B?5aCx5ZGK5pu4LnBkZg==?="`, "file.bin", "報告書.pdf"},
		{`inline; filename="=?utf-8?B?w5xuw69jw7Zkw6kgcsOpc3Vtw6kuZG9jeA==?="`, "file.bin", "Ünïcödé résumé.docx"},
		// padding is optional
		{`attachment; filename="=?utf-8?B?aMOpbGxvLnR4dA?="`, "file.bin", "héllo.txt"},
		// marker is case sensitive; other casing is a literal name
		{`attachment; filename="=?UTF-8?B?aMOpbGxvLnR4dA==?="`, "file.bin", `"=?UTF-8?B?aMOpbGxvLnR4dA==?="`},
		// invalid base64
		{`attachment; filename="=?utf-8?B?!!!!?="`, "file.bin", "file.bin"},
		{`attachment; filename="=?utf-8?B?aMOpb=GxvLnR4dA==?="`, "file.bin", "file.bin"},
		// bytes which are not UTF-8
		{`attachment; filename="=?utf-8?B?//4=?="`, "file.bin", "file.bin"},
		// encoded surrogate half
		{`attachment; filename="=?utf-8?B?7aCA?="`, "file.bin", "file.bin"},
		// truncated encoded-word
		{`attachment; filename="=?utf-8?B?`, "file.bin", "file.bin"},
		{`attachment; filename="=?utf-8?B?a`, "file.bin", "file.bin"},
		// empty payload
		{`attachment; filename="=?utf-8?B??="`, "file.bin", "file.bin"},
	}

	for _, tv := range testVec {
		assert.Equal(tv.expect, ResolveFilename(tv.header, tv.def), tv.header)
	}
}

func TestResolveFilenameIdempotent(t *testing.T) {
	assert := assert.New(t)

	for _, h := range []string{
		`attachment; filename="=?utf-8?B?aMOpbGxvLnR4dA==?="`,
		`attachment; filename="report.pdf"`,
		`attachment; filename="=?utf-8?B?!!!!?="`,
		"",
	} {
		first := ResolveFilename(h, "file.bin")
		second := ResolveFilename(h, "file.bin")
		assert.Equal(first, second)
	}
}

func TestResolveFilenameLogged(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	assert.Equal("file.bin", ResolveFilenameLogged(logger, `attachment; filename="=?utf-8?B?//4=?="`, "file.bin"))
	assert.Contains(buf.String(), "falling back to default download file name")
	assert.Contains(buf.String(), "not valid UTF-8")

	// missing param is not an anomaly
	buf.Reset()
	assert.Equal("file.bin", ResolveFilenameLogged(logger, "inline", "file.bin"))
	assert.Empty(buf.String())

	// nil logger is allowed
	assert.Equal("file.bin", ResolveFilenameLogged(nil, `attachment; filename="=?utf-8?B?!!!!?="`, "file.bin"))
}

func TestDecodeForgivingBase64(t *testing.T) {
	assert := assert.New(t)

	for _, s := range []string{"aGk=", "aGk", " a G k = ", "aGk\n"} {
		b, err := decodeForgivingBase64(s)
		assert.NoError(err, s)
		assert.Equal("hi", string(b), s)
	}
	for _, s := range []string{"a", "aGk==", "aG=k", "a?Gk"} {
		_, err := decodeForgivingBase64(s)
		assert.Error(err, s)
	}
}
