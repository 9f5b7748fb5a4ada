package slug

import (
	"strings"
	"unicode"
)

var fold = strings.NewReplacer(
	"&", " and ",
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i", "ı", "i",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ç", "c", "ğ", "g", "ñ", "n", "ş", "s",
)

// Generate lowercases name, folds common Latin diacritics to ASCII and joins
// the remaining alphanumeric runs with single hyphens.
//
//	"Mobile Phones"      -> "mobile-phones"
//	"phone_accessories"  -> "phone-accessories"
//	"Audio & Video"      -> "audio-and-video"
func Generate(name string) string {
	s := fold.Replace(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
