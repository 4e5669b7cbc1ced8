// Package archive writes and reads model bundles: a zip of named files
// followed by a manifest.json carrying each file's size and SHA-256.
package archive

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// ManifestName is the bundle member holding the manifest.
const ManifestName = "manifest.json"

const manifestVersion = 1

// ErrChecksum is returned when a member does not match its manifest entry.
var ErrChecksum = errors.New("archive: checksum mismatch")

// Manifest describes the contents of a bundle.
type Manifest struct {
	Version   int                  `json:"version"`
	Generator string               `json:"generator"`
	Timestamp string               `json:"timestamp"`
	Atoms     int                  `json:"atoms"`
	Files     map[string]FileEntry `json:"files"`
}

// FileEntry describes a single file within the bundle.
type FileEntry struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
	Type   string `json:"type"` // "xyz", "spt", "json", ...
}

// Entry is one file to bundle.
type Entry struct {
	Name string
	Type string
	Data []byte
}

// Write bundles entries into a zip on w and appends the manifest as the
// last member.
func Write(w io.Writer, entries []Entry, atoms int, now time.Time) (*Manifest, error) {
	manifest := &Manifest{
		Version:   manifestVersion,
		Generator: "molscript",
		Timestamp: now.UTC().Format(time.RFC3339),
		Atoms:     atoms,
		Files:     make(map[string]FileEntry),
	}

	zw := zip.NewWriter(w)
	for _, e := range entries {
		// Use forward slashes in zip paths
		name := strings.ReplaceAll(e.Name, "\\", "/")
		if name == ManifestName {
			return nil, fmt.Errorf("archive: %s is reserved", ManifestName)
		}
		if _, dup := manifest.Files[name]; dup {
			return nil, fmt.Errorf("archive: duplicate member %s", name)
		}
		entry, err := addToZip(zw, name, e.Data, now)
		if err != nil {
			return nil, err
		}
		entry.Type = e.Type
		manifest.Files[name] = entry
	}

	// Marshal and add manifest as the last entry
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("archive: marshal manifest: %w", err)
	}
	if _, err := addToZip(zw, ManifestName, manifestJSON, now); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close: %w", err)
	}
	return manifest, nil
}

// addToZip adds one member, computing its SHA-256 while writing.
func addToZip(zw *zip.Writer, name string, data []byte, mod time.Time) (FileEntry, error) {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: mod})
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: header %s: %w", name, err)
	}
	h := sha256.New()
	written, err := io.Copy(io.MultiWriter(fw, h), bytes.NewReader(data))
	if err != nil {
		return FileEntry{}, fmt.Errorf("archive: write %s: %w", name, err)
	}
	return FileEntry{
		SHA256: hex.EncodeToString(h.Sum(nil)),
		Size:   written,
	}, nil
}

// Read opens a bundle, checks every member against the manifest and
// returns the manifest and the member contents. Members missing from the
// manifest, and manifest entries missing from the bundle, are errors.
func Read(r io.ReaderAt, size int64) (*Manifest, map[string][]byte, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, nil, fmt.Errorf("archive: open: %w", err)
	}
	files := make(map[string][]byte)
	var manifest *Manifest
	for _, f := range zr.File {
		data, err := readMember(f)
		if err != nil {
			return nil, nil, err
		}
		if f.Name == ManifestName {
			manifest = new(Manifest)
			if err := json.Unmarshal(data, manifest); err != nil {
				return nil, nil, fmt.Errorf("archive: parse manifest: %w", err)
			}
			continue
		}
		files[f.Name] = data
	}
	if manifest == nil {
		return nil, nil, fmt.Errorf("archive: no %s", ManifestName)
	}
	if manifest.Version > manifestVersion {
		return nil, nil, fmt.Errorf("archive: manifest version %d is newer than %d", manifest.Version, manifestVersion)
	}
	for _, name := range Members(manifest) {
		data, ok := files[name]
		if !ok {
			return nil, nil, fmt.Errorf("archive: %s listed in manifest but missing", name)
		}
		if !validateChecksum(data, manifest.Files[name].SHA256) {
			return nil, nil, fmt.Errorf("%w: %s", ErrChecksum, name)
		}
	}
	for name := range files {
		if _, ok := manifest.Files[name]; !ok {
			return nil, nil, fmt.Errorf("archive: %s not in manifest", name)
		}
	}
	return manifest, files, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", f.Name, err)
	}
	return data, nil
}

// validateChecksum checks data's SHA-256 against the expected hex string.
func validateChecksum(data []byte, expected string) bool {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) == expected
}

// Members lists the manifest's files, sorted.
func Members(m *Manifest) []string {
	out := make([]string, 0, len(m.Files))
	for k := range m.Files {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
