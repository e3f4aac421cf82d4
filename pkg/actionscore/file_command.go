package actionscore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func (c *Core) issueFileCommand(path, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return errors.Errorf("Missing file at path: %s", path)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	if _, err := io.WriteString(f, message+"\n"); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func prepareKeyValueMessage(key, value string) (string, error) {
	delimiter := "ghadelimiter_" + uuid.NewString()

	if strings.Contains(key, delimiter) {
		return "", fmt.Errorf("Unexpected input: name should not contain the delimiter %q", delimiter)
	}
	if strings.Contains(value, delimiter) {
		return "", fmt.Errorf("Unexpected input: value should not contain the delimiter %q", delimiter)
	}
	return key + "<<" + delimiter + "\n" + value + "\n" + delimiter, nil
}

// ParseFileCommand reads a file command file (GITHUB_OUTPUT, GITHUB_STATE,
// GITHUB_ENV) back into a map. Later assignments of a name win.
func ParseFileCommand(r io.Reader) (map[string]string, error) {
	values := map[string]string{}
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if line == "" {
			continue
		}
		singleLine := strings.Index(line, "=")
		multiLine := strings.Index(line, "<<")
		switch {
		case singleLine != -1 && (multiLine == -1 || singleLine < multiLine):
			values[line[:singleLine]] = line[singleLine+1:]
		case multiLine != -1:
			delimiter := line[multiLine+2:]
			var content []string
			found := false
			for s.Scan() {
				if s.Text() == delimiter {
					found = true
					break
				}
				content = append(content, s.Text())
			}
			if !found {
				return nil, fmt.Errorf("invalid format delimiter '%v' not found before end of file", delimiter)
			}
			values[line[:multiLine]] = strings.Join(content, "\n")
		default:
			return nil, fmt.Errorf("invalid format '%v', expected a line with '=' or '<<'", line)
		}
	}
	return values, s.Err()
}

// ReadFileCommand parses the file command file at path.
func ReadFileCommand(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseFileCommand(f)
}
