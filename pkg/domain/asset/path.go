// Package asset resolves asset paths used by scripts into file locations
// inside a project folder.
package asset

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidPath is returned for strings that are not asset paths.
var ErrInvalidPath = errors.New("invalid asset path")

// Source is the asset root a path refers to.
type Source string

const (
	SourceGame   Source = "game"
	SourceEditor Source = "editor"
)

var pathPattern = regexp.MustCompile(`^(game|editor)://(([A-Za-z0-9_]+/)*)([A-Za-z0-9_]+\.[A-Za-z0-9_]+)$`)

// Path is a parsed asset path such as "game://tiles/grass.png".
type Path struct {
	Source Source
	Dirs   []string
	Name   string
}

// Parse parses an asset path.
func Parse(s string) (Path, error) {
	m := pathPattern.FindStringSubmatch(s)
	if m == nil {
		return Path{}, fmt.Errorf("%w: %q", ErrInvalidPath, s)
	}
	p := Path{Source: Source(m[1]), Name: m[4]}
	if dirs := strings.TrimSuffix(m[2], "/"); dirs != "" {
		p.Dirs = strings.Split(dirs, "/")
	}
	return p, nil
}

// Ext returns the file extension including the dot.
func (p Path) Ext() string {
	return filepath.Ext(p.Name)
}

// Dir returns the folder the asset lives in. Editor assets live under
// "<project>/editor/assets", game assets under "<project>/assets".
func (p Path) Dir(projectFolder string) string {
	parts := []string{projectFolder}
	if p.Source == SourceEditor {
		parts = append(parts, "editor")
	}
	parts = append(parts, "assets")
	parts = append(parts, p.Dirs...)
	return filepath.Join(parts...)
}

// File returns the file location of the asset.
func (p Path) File(projectFolder string) string {
	return filepath.Join(p.Dir(projectFolder), p.Name)
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteString(string(p.Source))
	b.WriteString("://")
	for _, d := range p.Dirs {
		b.WriteString(d)
		b.WriteByte('/')
	}
	b.WriteString(p.Name)
	return b.String()
}
