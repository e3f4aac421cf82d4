package actionscore

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// CommandFormatter renders log entries the way the runner parses step
// output: debug, warning and error entries become workflow commands, info
// entries are printed as is. When PrefixField is set and present on the
// entry, its value is prepended to the message.
type CommandFormatter struct {
	PrefixField string
}

func (f *CommandFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	msg := entry.Message
	if f.PrefixField != "" {
		if v, ok := entry.Data[f.PrefixField]; ok {
			msg = fmt.Sprintf("[%v] %s", v, msg)
		}
	}

	var line string
	switch entry.Level {
	case logrus.TraceLevel, logrus.DebugLevel:
		line = FormatCommand("debug", nil, msg)
	case logrus.InfoLevel:
		line = msg
	case logrus.WarnLevel:
		line = FormatCommand("warning", nil, msg)
	default:
		line = FormatCommand("error", nil, msg)
	}
	return []byte(line + "\n"), nil
}
