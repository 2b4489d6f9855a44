package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dropwatch/dropwatch/internal/watch"
)

const divider = "━━━━━━━━━━━━━━━━━━━━"

// markdownV2Reserved is the full set of characters the Telegram MarkdownV2
// parser treats as syntax. Every one of them must be escaped in interpolated
// text or the endpoint rejects the whole message.
const markdownV2Reserved = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes all MarkdownV2 reserved characters in text.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(markdownV2Reserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ComposeChanges renders an aggregated change list into one batch message.
// It returns false when there is nothing to report.
//
// Sections appear in fixed order (new, modified, deleted), each with its own
// count and one line per path.
func ComposeChanges(name string, changes []watch.SetChange) (string, bool) {
	if len(changes) == 0 {
		return "", false
	}

	var newFiles, modifiedFiles, deletedFiles []string
	for _, c := range changes {
		line := fmt.Sprintf("    `%s`", EscapeMarkdownV2(c.Path))
		switch c.Kind {
		case watch.KindNew:
			newFiles = append(newFiles, line)
		case watch.KindModified:
			modifiedFiles = append(modifiedFiles, line)
		case watch.KindDeleted:
			deletedFiles = append(deletedFiles, line)
		}
	}

	parts := []string{
		fmt.Sprintf("📁 *%s* detected %d change%s", EscapeMarkdownV2(name), len(changes), plural(len(changes))),
		divider,
	}

	if len(newFiles) > 0 {
		parts = append(parts, fmt.Sprintf("✨ *New* \\(%d\\)\n%s", len(newFiles), strings.Join(newFiles, "\n")))
	}
	if len(modifiedFiles) > 0 {
		parts = append(parts, fmt.Sprintf("📝 *Modified* \\(%d\\)\n%s", len(modifiedFiles), strings.Join(modifiedFiles, "\n")))
	}
	if len(deletedFiles) > 0 {
		parts = append(parts, fmt.Sprintf("🗑 *Deleted* \\(%d\\)\n%s", len(deletedFiles), strings.Join(deletedFiles, "\n")))
	}

	return strings.Join(parts, "\n\n"), true
}

// ComposeStartup renders the online notice.
func ComposeStartup(name string, dirCount int, interval time.Duration) string {
	return fmt.Sprintf(
		"🟢 *%s* is now online\\!\n%s\n📂 Monitoring *%d* director%s\n⏱ Check interval: *%s*",
		EscapeMarkdownV2(name),
		divider,
		dirCount,
		pluralY(dirCount),
		EscapeMarkdownV2(interval.String()),
	)
}

// ComposeShutdown renders the shutdown notice.
func ComposeShutdown(name string) string {
	return fmt.Sprintf(
		"🔴 *%s* is shutting down\n%s\n👋 Goodbye\\!",
		EscapeMarkdownV2(name),
		divider,
	)
}

// ComposeError renders a recoverable-error notice.
func ComposeError(err error) string {
	return fmt.Sprintf("⚠️ *Monitor Error*\n`%s`", EscapeMarkdownV2(err.Error()))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
