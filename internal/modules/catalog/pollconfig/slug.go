package pollconfig

import (
	"strconv"
	"strings"
	"unicode"
)

// Slugify lowercases name and collapses every run of non-alphanumerics into a
// single dash.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "config"
	}
	return b.String()
}

// nextSlug picks base or base-N, with N one past the highest existing suffix.
func nextSlug(base string, existing []string) string {
	taken := false
	highest := 1
	for _, s := range existing {
		if s == base {
			taken = true
			continue
		}
		suffix, ok := strings.CutPrefix(s, base+"-")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 2 {
			continue
		}
		taken = true
		if n > highest {
			highest = n
		}
	}
	if !taken {
		return base
	}
	return base + "-" + strconv.Itoa(highest+1)
}
