package format

import (
	"fmt"
	"strconv"
	"strings"
)

// abstractLimit is how much of a free-text abstract survives into a digest.
const abstractLimit = 200

// Currency abbreviates large monetary amounts: $2.3M, $1.5K, $500.00.
func Currency(amount float64) string {
	switch {
	case amount >= 1_000_000:
		return fmt.Sprintf("$%.1fM", amount/1_000_000)
	case amount >= 1_000:
		return fmt.Sprintf("$%.1fK", amount/1_000)
	default:
		return fmt.Sprintf("$%.2f", amount)
	}
}

// Percentage renders count/total as a percentage with one decimal place.
func Percentage(count, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(count)/float64(total)*100)
}

// Wrap reflows text into lines no wider than width, prefixing every line
// with indent. Words longer than the width get a line of their own.
func Wrap(text string, width int, indent string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) <= width {
			current += " " + word
		} else {
			lines = append(lines, indent+current)
			current = word
		}
	}
	lines = append(lines, indent+current)

	return strings.Join(lines, "\n")
}

// TruncateAbstract cuts an abstract down to the preview limit, appending an
// ellipsis when anything was dropped.
func TruncateAbstract(text string) string {
	if len(text) <= abstractLimit {
		return text
	}
	return text[:abstractLimit] + "..."
}

// SectionHeader underlines a title with the given rune.
func SectionHeader(title string, underline rune) string {
	return title + "\n" + strings.Repeat(string(underline), len(title))
}

// JoinOrNA joins items with a comma, falling back to N/A for empty lists.
func JoinOrNA(items []string) string {
	if len(items) == 0 {
		return "N/A"
	}
	return strings.Join(items, ", ")
}

// OrNA substitutes N/A for empty values.
func OrNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}

// Thousands renders an integer with comma separators (1,234,567).
func Thousands(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var b strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
