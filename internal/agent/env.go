package agent

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildTaskWithEnvironment prefixes the user task with the site and start path it runs on.
func BuildTaskWithEnvironment(rawTask, startURL string) string {
	u, err := url.Parse(startURL)
	if err != nil || u.Host == "" {
		return rawTask
	}

	host := strings.ToLower(u.Host)
	path := strings.TrimRight(u.Path, "/")

	var pathNote string
	if path != "" {
		pathNote = fmt.Sprintf(`
Start path on the site: %s.
Prefer staying in the section whose URL starts with this path.
Do not jump to other top-level sections through the global header menu
unless the user explicitly asked for it.`,
			path,
		)
	}

	return fmt.Sprintf(
		`You start on the site %s.
Start page: %s.%s

User task: %s`,
		host, startURL, pathNote, rawTask,
	)
}
