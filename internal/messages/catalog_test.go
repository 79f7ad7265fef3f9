package messages

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `<?xml version="1.0" encoding="utf-8"?>
<messages>
  <message index="(0x80072030)">We don't recognise that username.</message>
  <message index="(0x8007052e)">The password you entered is incorrect.</message>
  <message index="locked out">Your account is locked. Contact the service desk.</message>
</messages>`

func TestTranslateMatch(t *testing.T) {
	catalog, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"not found signature",
			"search failed (0x80072030): user not found in directory",
			"We don't recognise that username.",
		},
		{
			"bad credentials signature",
			"bind failed (0x8007052e): the supplied credential is invalid",
			"The password you entered is incorrect.",
		},
		{
			"lockout signature",
			"account is locked out",
			"Your account is locked. Contact the service desk.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.Translate(tt.raw))
		})
	}
}

func TestTranslatePassthrough(t *testing.T) {
	catalog, err := Parse(strings.NewReader(sampleCatalog))
	require.NoError(t, err)

	raw := "some failure no catalog entry matches"
	assert.Equal(t, raw, catalog.Translate(raw))
}

func TestTranslateDocumentOrderWins(t *testing.T) {
	// Both indexes are substrings of the raw message; the entry that
	// appears first in the document takes precedence.
	overlapping := `<messages>
  <message index="locked">first entry</message>
  <message index="locked out">second entry</message>
</messages>`

	catalog, err := Parse(strings.NewReader(overlapping))
	require.NoError(t, err)

	assert.Equal(t, "first entry", catalog.Translate("account is locked out"))
}

func TestParseRejectsEmptyIndex(t *testing.T) {
	_, err := Parse(strings.NewReader(`<messages><message index="">text</message></messages>`))
	assert.Error(t, err)
}

func TestParseMalformedXML(t *testing.T) {
	_, err := Parse(strings.NewReader(`<messages><message index="x">unclosed`))
	assert.Error(t, err)
}

func TestEmptyCatalog(t *testing.T) {
	catalog, err := Parse(strings.NewReader(`<messages></messages>`))
	require.NoError(t, err)

	assert.Zero(t, catalog.Len())
	assert.Equal(t, "unchanged", catalog.Translate("unchanged"))
}

func TestEmptyConstructor(t *testing.T) {
	catalog := Empty()
	assert.Zero(t, catalog.Len())
	assert.Equal(t, "raw text", catalog.Translate("raw text"))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	catalog, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, catalog.Len())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.xml"))
	assert.Error(t, err)
}
