package actionscore

import (
	"sort"
	"strings"
)

var (
	dataEscaper = strings.NewReplacer(
		"%", "%25",
		"\r", "%0D",
		"\n", "%0A",
	)
	propertyEscaper = strings.NewReplacer(
		"%", "%25",
		"\r", "%0D",
		"\n", "%0A",
		":", "%3A",
		",", "%2C",
	)
)

// FormatCommand renders a workflow command, e.g. `::set-output name=x::value`.
func FormatCommand(command string, properties map[string]string, message string) string {
	var sb strings.Builder
	sb.WriteString("::")
	sb.WriteString(command)

	if len(properties) > 0 {
		names := make([]string, 0, len(properties))
		for name, value := range properties {
			if value != "" {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for i, name := range names {
			if i == 0 {
				sb.WriteString(" ")
			} else {
				sb.WriteString(",")
			}
			sb.WriteString(name)
			sb.WriteString("=")
			sb.WriteString(propertyEscaper.Replace(properties[name]))
		}
	}

	sb.WriteString("::")
	sb.WriteString(dataEscaper.Replace(message))
	return sb.String()
}
