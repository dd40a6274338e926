// Package i18n formats CLI output for the user's locale.
package i18n

import (
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is the fallback language
var DefaultLang = language.English

// SupportedLangs are the languages we support
var SupportedLangs = []language.Tag{
	language.English,
	language.German,
}

var matcher = language.NewMatcher(SupportedLangs)

// Message keys with plural or translated forms.
const (
	MsgFilesWritten  = "%d files written, %d unchanged"
	MsgFilesDiffer   = "%d files differ"
	MsgWarnings      = "%d warnings"
	MsgNoApply       = "no apply recorded"
	MsgUpToDate      = "up to date"
	MsgInterfaces    = "%d interfaces"
	MsgConfigWritten = "configuration written to %s"
)

func init() {
	set := func(tag language.Tag, key string, msg ...any) {
		var err error
		switch len(msg) {
		case 1:
			err = message.SetString(tag, key, msg[0].(string))
		default:
			err = message.Set(tag, key, plural.Selectf(1, "%d", msg...))
		}
		if err != nil {
			panic("i18n catalog: " + err.Error())
		}
	}

	set(language.English, MsgFilesWritten, "=1", "%d file written, %d unchanged", "other", "%d files written, %d unchanged")
	set(language.English, MsgFilesDiffer, "=1", "%d file differs", "other", "%d files differ")
	set(language.English, MsgWarnings, "=1", "%d warning", "other", "%d warnings")
	set(language.English, MsgInterfaces, "=1", "%d interface", "other", "%d interfaces")

	set(language.German, MsgFilesWritten, "=1", "%d Datei geschrieben, %d unverändert", "other", "%d Dateien geschrieben, %d unverändert")
	set(language.German, MsgFilesDiffer, "=1", "%d Datei weicht ab", "other", "%d Dateien weichen ab")
	set(language.German, MsgWarnings, "=1", "%d Warnung", "other", "%d Warnungen")
	set(language.German, MsgInterfaces, "=1", "%d Schnittstelle", "other", "%d Schnittstellen")
	set(language.German, MsgNoApply, "keine Anwendung protokolliert")
	set(language.German, MsgUpToDate, "aktuell")
	set(language.German, MsgConfigWritten, "Konfiguration nach %s geschrieben")
}

// MatchLanguage returns the best supported language for a locale string
// such as "de_DE.UTF-8" or an Accept-Language list.
func MatchLanguage(locale string) language.Tag {
	if i := strings.IndexAny(locale, ".@"); i != -1 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return DefaultLang
	}

	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return DefaultLang
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLang
	}
	return SupportedLangs[idx]
}

// NewPrinter returns a message printer for the given language
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// NewCLIPrinter returns a printer for the locale named by LC_ALL, LC_MESSAGES
// or LANG, read through getenv.
func NewCLIPrinter(getenv func(string) string) *message.Printer {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := getenv(key); v != "" {
			return message.NewPrinter(MatchLanguage(v))
		}
	}
	return message.NewPrinter(DefaultLang)
}
