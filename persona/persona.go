// Package persona loads the bot's persona document: a markdown file with
// optional YAML frontmatter carrying the display name and acknowledgement
// line, where the body is the instructional prompt itself.
package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Profile struct {
	// Name is the bot's display name, used in the synthetic model ack.
	Name string
	// Ack optionally overrides the model acknowledgement line.
	Ack string
	// Prompt is the persona text injected ahead of every request. May be
	// empty, in which case the assembler omits the preamble pair.
	Prompt string
}

type frontmatter struct {
	Name string `yaml:"name"`
	Ack  string `yaml:"ack"`
}

// Load reads a persona document from disk. A missing frontmatter block is
// fine; the whole file is then treated as the prompt.
func Load(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read persona file: %w", err)
	}
	return Parse(string(raw))
}

func Parse(contents string) (Profile, error) {
	rawFM, body, ok := splitFrontmatter(contents)
	profile := Profile{Prompt: strings.TrimSpace(body)}
	if !ok {
		return profile, nil
	}
	var fm frontmatter
	if err := yaml.Unmarshal([]byte(rawFM), &fm); err != nil {
		return Profile{}, fmt.Errorf("parse persona frontmatter: %w", err)
	}
	profile.Name = strings.TrimSpace(fm.Name)
	profile.Ack = strings.TrimSpace(fm.Ack)
	return profile, nil
}

// splitFrontmatter splits a document into raw YAML frontmatter and body.
// The delimiters must be a leading line "---" and a later closing "---".
func splitFrontmatter(contents string) (string, string, bool) {
	lines := strings.Split(strings.ReplaceAll(contents, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", contents, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "---" {
			continue
		}
		return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), true
	}
	return "", contents, false
}
