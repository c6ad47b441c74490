//Package templates ships well known patterns as serialized snapshots
package templates

import (
	"embed"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"gameoflife/src/universe"
)

const ext = ".gol"

//go:embed patterns/*.gol
var patterns embed.FS

var ErrUnknownTemplate = errors.New("templates: unknown template")

//Names lists the available templates in alphabetical order
func Names() []string {
	entries, err := fs.ReadDir(patterns, "patterns")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ext); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

//Load decodes the template called name
func Load(name string) (*universe.Snapshot, error) {
	data, err := patterns.ReadFile(path.Join("patterns", name+ext))
	if err != nil {
		return nil, errors.Wrapf(ErrUnknownTemplate, "%q", name)
	}
	s, err := universe.Deserialize(data)
	if err != nil {
		return nil, errors.Wrapf(err, "template %q", name)
	}
	return s, nil
}

//Universe builds a fresh universe from the template called name
func Universe(name string, o *universe.Options) (*universe.Universe, error) {
	s, err := Load(name)
	if err != nil {
		return nil, err
	}
	return universe.FromSnapshot(s, o)
}
