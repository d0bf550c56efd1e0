package changelog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"tag-release/internal/model"
)

// DefaultSentinel ends the most recent section.
const DefaultSentinel = "======="

// ErrNoVersion is returned when no "## <version>" heading precedes the sentinel.
var ErrNoVersion = errors.New("no version heading found")

var headingPattern = regexp.MustCompile(`^##\s+(.+)$`)

// Options tune the parser. The zero value uses DefaultSentinel.
type Options struct {
	Sentinel string
}

// ParseFile reads the changelog at path.
func ParseFile(path string, opts Options) (model.Section, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Section{}, fmt.Errorf("open changelog: %w", err)
	}
	defer f.Close()

	section, err := Parse(f, opts)
	if err != nil {
		return model.Section{}, fmt.Errorf("%s: %w", path, err)
	}
	return section, nil
}

// Parse scans the changelog top to bottom. The first heading wins; scanning
// stops at the sentinel or at end of input.
func Parse(r io.Reader, opts Options) (model.Section, error) {
	sentinel := opts.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}

	var (
		version string
		full    []string
		body    []string
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == sentinel {
			break
		}
		full = append(full, line)

		if version == "" {
			if match := headingPattern.FindStringSubmatch(line); match != nil {
				version = strings.TrimSpace(match[1])
				continue
			}
		}
		if version != "" {
			body = append(body, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return model.Section{}, fmt.Errorf("read changelog: %w", err)
	}
	if version == "" {
		return model.Section{}, ErrNoVersion
	}

	return model.Section{
		Version: version,
		Body:    strings.Join(trimBlank(body), "\n"),
		Full:    strings.Join(full, "\n"),
	}, nil
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Semver returns the canonical semantic version for a version title such as
// "v2.1.0-stable", or "" when the title is not a semantic version.
func Semver(version string) string {
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}
