package mailbox

import "strings"

// CleanBody strips leading/trailing whitespace from each line and drops
// blank lines, collapsing the body for compact chunking.
func CleanBody(body string) string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
