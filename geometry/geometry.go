// Package geometry holds named presets for formatting a new filesystem
// image, loaded from an embedded CSV at startup.
package geometry

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	errs "github.com/andrehsu/blockfs/errors"
)

// Preset names a combination of total image size and inode-table size that
// blockfsctl's format command accepts as a single --geometry flag instead of
// requiring both numbers spelled out.
type Preset struct {
	Slug              string `csv:"slug"`
	Description       string `csv:"description"`
	TotalBlocks       uint32 `csv:"total_blocks"`
	InodeBitmapBlocks uint32 `csv:"inode_bitmap_blocks"`
}

//go:embed presets.csv
var presetsCSV string

var presets map[string]Preset

func init() {
	presets = make(map[string]Preset)
	err := gocsv.UnmarshalToCallback(strings.NewReader(presetsCSV), func(p Preset) error {
		if _, exists := presets[p.Slug]; exists {
			return fmt.Errorf("geometry: duplicate preset slug %q", p.Slug)
		}
		presets[p.Slug] = p
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}

// Lookup returns the named preset, or ErrInvalidArgument if no preset has
// that slug.
func Lookup(slug string) (Preset, error) {
	p, ok := presets[slug]
	if !ok {
		return Preset{}, errs.ErrInvalidArgument.WithMessage(fmt.Sprintf("no preset disk geometry named %q", slug))
	}
	return p, nil
}

// Names returns every known preset slug, for use in CLI help text.
func Names() []string {
	names := make([]string, 0, len(presets))
	for slug := range presets {
		names = append(names, slug)
	}
	return names
}
