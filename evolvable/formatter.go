package evolvable

import "strings"

// Format joins parts with a single space, collapsing any empty parts.
// Representative of the small string-utility shape of tools the
// Ouroboros-style loop this system is modeled on tends to generate.
func Format(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
