// Package translate renders user-facing simulator messages in the host
// language. Message keys are the en-US texts themselves, so an untranslated
// key prints as written.
package translate

import (
	"log/slog"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

const fallbackLanguage = "en-US"

var (
	printerOnce sync.Once
	printer     *message.Printer
)

// Languages lists the host's preferred languages, most preferred first.
// It is never empty.
func Languages() []string {
	languages, err := locale.GetLocales()
	if err != nil {
		slog.Debug("host languages unavailable", "err", err)
	}

	if len(languages) == 0 {
		return []string{fallbackLanguage}
	}

	return languages
}

func hostPrinter() *message.Printer {
	printerOnce.Do(func() {
		printer = message.NewPrinter(message.MatchLanguage(Languages()...))
	})

	return printer
}

// From formats the message key with args for the host language.
func From(key message.Reference, args ...any) string {
	return hostPrinter().Sprintf(key, args...)
}
