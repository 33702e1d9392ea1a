// Package i18n resolves result and error messages in the locale negotiated
// for the request. Catalog entries are registered at init in messages_*.go.
package i18n

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"civitas/pkg/requestcontext"
)

var (
	portuguese = language.MustParse("pt-BR")

	supportedTags = []language.Tag{portuguese, language.English}
	tagMatcher    = language.NewMatcher(supportedTags)

	defaultTag atomic.Value // language.Tag
)

func init() {
	defaultTag.Store(portuguese)
}

// Supported returns the supported language tags.
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supportedTags))
	copy(tags, supportedTags)
	return tags
}

// Default returns the fallback tag.
func Default() language.Tag {
	return defaultTag.Load().(language.Tag)
}

// SetDefault changes the fallback locale. Unsupported values are ignored.
func SetDefault(locale string) {
	if tag, ok := Match(locale); ok {
		defaultTag.Store(tag)
	}
}

// Match maps a BCP 47 string to the closest supported tag.
func Match(locale string) (language.Tag, bool) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return language.Und, false
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und, false
	}
	matched, _, confidence := tagMatcher.Match(tag)
	if confidence == language.No {
		return language.Und, false
	}
	return matched, true
}

// Negotiate picks a tag from an Accept-Language header value.
func Negotiate(acceptLanguage string) language.Tag {
	if acceptLanguage = strings.TrimSpace(acceptLanguage); acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil && len(tags) > 0 {
			matched, _, confidence := tagMatcher.Match(tags...)
			if confidence != language.No {
				return matched
			}
		}
	}
	return Default()
}

// Tag returns the locale carried by ctx, or the default.
func Tag(ctx context.Context) language.Tag {
	if tag, ok := Match(requestcontext.Locale(ctx)); ok {
		return tag
	}
	return Default()
}

// Printer returns a message printer for the request locale.
func Printer(ctx context.Context) *message.Printer {
	return message.NewPrinter(baseTag(Tag(ctx)))
}

// Sprintf formats a catalog key for the request locale. Unknown keys are
// formatted as-is.
func Sprintf(ctx context.Context, key string, args ...any) string {
	return Printer(ctx).Sprintf(key, args...)
}

// baseTag strips the -u- extensions the matcher adds so catalog lookups hit
// the exact tags the catalog was registered with.
func baseTag(tag language.Tag) language.Tag {
	base, _ := tag.Base()
	for _, t := range supportedTags {
		if b, _ := t.Base(); b == base {
			return t
		}
	}
	return tag
}
