// Package inspect looks inside an extraction directory for source maps and
// the Electron entry point.
package inspect

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/mcdonaldj/asarkit/internal/ports"
)

// DefaultMain is Electron's entry point when package.json has no main field.
const DefaultMain = "index.js"

// SourceMap is a *.map file found under the extraction directory.
type SourceMap struct {
	Path      string // slash-separated, relative to the root
	SizeBytes int64
	// Sources is the length of the map's "sources" array, or -1 when the
	// file is not a readable source map.
	Sources int
}

// SourceMaps lists *.map files under root, skipping node_modules, sorted by path.
func SourceMaps(fsys ports.FileSystem, root string) ([]SourceMap, error) {
	var maps []SourceMap
	err := fsys.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && info.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(info.Name(), ".map") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		maps = append(maps, SourceMap{
			Path:      filepath.ToSlash(rel),
			SizeBytes: info.Size(),
			Sources:   countSources(fsys, path),
		})
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan for source maps", goerr.V("path", root))
	}

	sort.Slice(maps, func(i, j int) bool { return maps[i].Path < maps[j].Path })
	return maps, nil
}

func countSources(fsys ports.FileSystem, path string) int {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return -1
	}
	var m struct {
		Version int      `json:"version"`
		Sources []string `json:"sources"`
	}
	if err := json.Unmarshal(data, &m); err != nil || m.Version == 0 {
		return -1
	}
	return len(m.Sources)
}

// MainEntry returns the main script named by root/package.json, relative to
// root. A missing package.json is an error; a missing main field yields
// DefaultMain.
func MainEntry(fsys ports.FileSystem, root string) (string, error) {
	path := filepath.Join(root, "package.json")
	data, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", goerr.Wrap(err, "package.json not found; extract the archive first", goerr.V("path", path))
		}
		return "", goerr.Wrap(err, "failed to read package.json", goerr.V("path", path))
	}

	var pkg struct {
		Main string `json:"main"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", goerr.Wrap(err, "invalid package.json", goerr.V("path", path))
	}
	if pkg.Main == "" {
		return DefaultMain, nil
	}
	return filepath.ToSlash(filepath.Clean(strings.TrimPrefix(pkg.Main, "./"))), nil
}

// DevToolsSteps returns instructions for enabling DevTools in an app whose
// entry point is main.
func DevToolsSteps(main string) []string {
	return []string{
		"Extract the archive",
		"Open " + main + " in the extraction directory",
		"After the BrowserWindow is created, add: mainWindow.webContents.openDevTools()",
		"Repack and apply the changes",
	}
}
