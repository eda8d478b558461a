package shared

import (
	"net/http"

	"golang.org/x/text/language"
)

// SessionLocaleKey stores the user's preferred UI language in session.
const SessionLocaleKey = "locale"

// The portal ships Khmer and English; Khmer is the product default.
var supportedLocales = []language.Tag{
	language.Khmer,
	language.English,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// NegotiateLocale picks the best supported language for a request. The
// session preference wins over the Accept-Language header.
func NegotiateLocale(r *http.Request, sess *Session) string {
	preferred := ""
	if sess != nil {
		preferred = sess.Get(SessionLocaleKey)
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil {
		tags = nil
	}
	if preferred != "" {
		if tag, parseErr := language.Parse(preferred); parseErr == nil {
			tags = append([]language.Tag{tag}, tags...)
		}
	}
	tag, _, _ := localeMatcher.Match(tags...)
	base, _ := tag.Base()
	return base.String()
}
