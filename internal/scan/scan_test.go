package scan

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestEnumerateRecursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mpg"))
	writeFile(t, filepath.Join(root, "sub", "b.avi"))
	writeFile(t, filepath.Join(root, "sub", "deep", "c.MPG"))
	writeFile(t, filepath.Join(root, "sub", "skip.txt"))

	entries, err := Enumerate(root, []string{".mpg", ".avi"}, true)
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	want := []string{"a.mpg", "b.avi", "c.MPG"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Enumerate names = %v, want %v", names, want)
	}
}

func TestEnumerateFlat(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.avi"))
	writeFile(t, filepath.Join(root, "sub", "nested.avi"))

	entries, err := Enumerate(root, []string{".avi"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "top.avi" {
		t.Errorf("flat scan = %v, want only top.avi", entries)
	}
	if entries[0].Dir != root {
		t.Errorf("entry dir = %q, want %q", entries[0].Dir, root)
	}
}

func TestEnumerateEmpty(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "readme.txt"))

	entries, err := Enumerate(root, []string{".mpg"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %v", entries)
	}
}

func TestEnumerateDeterministic(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"z/one.mpg", "a/two.mpg", "a/b/three.mpg", "four.mpg"} {
		writeFile(t, filepath.Join(root, p))
	}

	first, err := Enumerate(root, []string{".mpg"}, true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Enumerate(root, []string{".mpg"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two scans differ:\n%v\n%v", first, second)
	}
}

func TestNormalizeExts(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{".MPG", "avi", " mov "}, []string{".mpg", ".avi", ".mov"}},
		{[]string{"", ".mp4"}, []string{".mp4"}},
		{nil, []string{}},
	}
	for _, tt := range tests {
		got := NormalizeExts(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("NormalizeExts(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
