package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestMatchLanguage(t *testing.T) {
	tests := map[string]language.Tag{
		"":            language.English,
		"C":           language.English,
		"de_DE.UTF-8": language.German,
		"de":          language.German,
		"en_US":       language.English,
		"fr_FR.UTF-8": language.English,
		"de-CH, en":   language.German,
	}
	for in, want := range tests {
		assert.Equal(t, want, MatchLanguage(in), in)
	}
}

func TestCLIPrinter(t *testing.T) {
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}

	p := NewCLIPrinter(env(nil))
	assert.Equal(t, "1 file written, 2 unchanged", p.Sprintf(MsgFilesWritten, 1, 2))
	assert.Equal(t, "3 files written, 0 unchanged", p.Sprintf(MsgFilesWritten, 3, 0))
	assert.Equal(t, "1 warning", p.Sprintf(MsgWarnings, 1))

	p = NewCLIPrinter(env(map[string]string{"LANG": "en_US.UTF-8", "LC_ALL": "de_DE.UTF-8"}))
	assert.Equal(t, "2 Dateien weichen ab", p.Sprintf(MsgFilesDiffer, 2))
	assert.Equal(t, "aktuell", p.Sprintf(MsgUpToDate))
}
