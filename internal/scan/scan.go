package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileEntry is one discovered source file: the directory that contains it
// and its bare filename.
type FileEntry struct {
	Dir  string
	Name string
}

// Path returns the full path of the entry.
func (e FileEntry) Path() string {
	return filepath.Join(e.Dir, e.Name)
}

// Enumerate collects the files under root whose names end with one of the
// given extensions. When recursive is true the whole subtree is walked;
// otherwise only the immediate contents of root are scanned. Matching is
// case-insensitive. The result is sorted lexically by directory then name,
// so scanning an unchanged tree twice yields the same sequence.
func Enumerate(root string, exts []string, recursive bool) ([]FileEntry, error) {
	exts = NormalizeExts(exts)

	var entries []FileEntry
	if recursive {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if matchExt(d.Name(), exts) {
				entries = append(entries, FileEntry{Dir: filepath.Dir(path), Name: d.Name()})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		dirents, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		for _, d := range dirents {
			if d.IsDir() {
				continue
			}
			if matchExt(d.Name(), exts) {
				entries = append(entries, FileEntry{Dir: root, Name: d.Name()})
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Dir != entries[j].Dir {
			return entries[i].Dir < entries[j].Dir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// NormalizeExts lowercases extensions and ensures each carries a leading dot.
// Empty elements are dropped.
func NormalizeExts(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

func matchExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
