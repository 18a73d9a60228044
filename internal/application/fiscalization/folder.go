package fiscalization

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const folderTimeLayout = "2006-01-02-15-04-05"

// ArchiveFolder builds the per-event folder token under which all
// documents of one fiscalization attempt are archived. The token embeds
// the receiving host and process so concurrent instances never collide.
func ArchiveFolder(origin, externalID string, now time.Time) string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	return fmt.Sprintf("%s-%s-%s-%s-%d",
		now.UTC().Format(folderTimeLayout),
		sanitizeToken(origin),
		sanitizeToken(externalID),
		sanitizeToken(hostname),
		os.Getpid(),
	)
}

// sanitizeToken keeps folder segments safe for object keys.
func sanitizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, s)
}
