// Package privacy strips or obfuscates identifying data before sensitive
// submissions are persisted.
//
// Deny-lists match keys after normalization (case, accents, and the
// separators "_", "-", " " are ignored), so "Full_Name", "fullName" and
// "nome completo" are all caught.
package privacy

import (
	"strings"
	"unicode"

	"github.com/mssola/useragent"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// subjectDenyList covers legal name, national ID variants and exact address.
var subjectDenyList = keySet(
	"name", "fullName", "legalName", "socialName", "nome", "nomeCompleto",
	"cpf", "rg", "cnh", "nationalId", "documentNumber", "document", "documento",
	"passport", "passaporte", "taxId", "ssn",
	"address", "fullAddress", "street", "streetAddress", "endereco", "logradouro",
	"houseNumber", "numero", "complement", "complemento", "zipCode", "cep",
)

// metadataDenyList covers submitter identity and raw network identifiers.
var metadataDenyList = keySet(
	"userId", "submitterId", "citizenId", "submitterName", "userName", "name",
	"email", "submitterEmail", "phone", "telefone", "celular", "submitterPhone",
	"ip", "ipAddress", "remoteAddr", "remoteAddress", "clientIp", "xForwardedFor", "xRealIp",
	"cpf", "sessionId", "deviceId", "cookie",
)

var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeKey lowercases, strips accents and drops separators.
func NormalizeKey(k string) string {
	folded, _, err := transform.String(foldAccents, k)
	if err != nil {
		folded = k
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func keySet(keys ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[NormalizeKey(k)] = struct{}{}
	}
	return set
}

// SanitizeSubjectInfo returns a copy of obj without legal name, national ID
// and exact address fields, at any depth. Nil in, nil out.
func SanitizeSubjectInfo(obj map[string]any) map[string]any {
	return strip(obj, subjectDenyList)
}

// SanitizeMetadata returns a copy of obj without submitter identity or raw
// IP fields. A raw user agent is replaced by its browser and OS family.
func SanitizeMetadata(obj map[string]any) map[string]any {
	out := strip(obj, metadataDenyList)
	for k, v := range out {
		if NormalizeKey(k) != "useragent" {
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = CoarseUserAgent(s)
		} else {
			delete(out, k)
		}
	}
	return out
}

// IsDenied reports whether key would be removed by SanitizeMetadata.
func IsDenied(key string) bool {
	_, ok := metadataDenyList[NormalizeKey(key)]
	return ok
}

func strip(obj map[string]any, deny map[string]struct{}) map[string]any {
	if obj == nil {
		return nil
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if _, denied := deny[NormalizeKey(k)]; denied {
			continue
		}
		out[k] = stripValue(v, deny)
	}
	return out
}

func stripValue(v any, deny map[string]struct{}) any {
	switch t := v.(type) {
	case map[string]any:
		return strip(t, deny)
	case []any:
		cp := make([]any, len(t))
		for i, item := range t {
			cp[i] = stripValue(item, deny)
		}
		return cp
	default:
		return v
	}
}

// CoarseUserAgent reduces a User-Agent header to "browser/os", dropping
// versions and device details that help fingerprint a submitter.
func CoarseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "unknown"
	}
	os := ua.OSInfo().Name
	if os == "" {
		os = "unknown"
	}
	kind := "desktop"
	if ua.Mobile() {
		kind = "mobile"
	}
	return strings.ToLower(browser + "/" + os + "/" + kind)
}
