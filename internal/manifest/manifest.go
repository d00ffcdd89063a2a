// Package manifest keeps a per-application JSON journal: the snapshot taken
// at extraction time and the history of repack and restore operations.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mcdonaldj/asarkit/internal/ports"
)

// Actions recorded in the history.
const (
	ActionExtract = "extract"
	ActionRepack  = "repack"
	ActionRestore = "restore"
)

// DirName is the journal directory inside the workspace.
const DirName = ".asarkit"

type FileRecord struct {
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
}

// Snapshot describes the extraction directory right after a successful unpack.
type Snapshot struct {
	CreatedAt     time.Time             `json:"created_at"`
	ArchiveSHA256 string                `json:"archive_sha256"`
	Files         map[string]FileRecord `json:"files"`
}

type Entry struct {
	Action        string    `json:"action"`
	CreatedAt     time.Time `json:"created_at"`
	ArchiveSHA256 string    `json:"archive_sha256"`
	BackupSHA256  string    `json:"backup_sha256,omitempty"`
	SizeBytes     int64     `json:"size_bytes"`
	Strategy      string    `json:"strategy,omitempty"`
}

type Manifest struct {
	App         string    `json:"app"`
	Root        string    `json:"root"`
	ArchivePath string    `json:"archive_path"`
	Extraction  *Snapshot `json:"extraction,omitempty"`
	History     []Entry   `json:"history"`
}

func ManifestPath(workspace, app string) string {
	return filepath.Join(workspace, DirName, app+".json")
}

// Load reads the journal for app. A missing journal yields an empty manifest.
func Load(fsys ports.FileSystem, workspace, app string) (*Manifest, error) {
	data, err := fsys.ReadFile(ManifestPath(workspace, app))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Manifest{
				App:     app,
				History: []Entry{},
			}, nil
		}
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.History == nil {
		m.History = []Entry{}
	}
	return &m, nil
}

func (m *Manifest) Save(fsys ports.FileSystem, workspace string) error {
	path := ManifestPath(workspace, m.App)

	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	return fsys.WriteFile(path, data, 0644)
}

func (m *Manifest) AddEntry(entry Entry) {
	m.History = append(m.History, entry)
}

func (m *Manifest) LatestEntry() *Entry {
	if len(m.History) == 0 {
		return nil
	}
	return &m.History[len(m.History)-1]
}

// LatestBackup returns the newest entry that wrote the backup slot.
func (m *Manifest) LatestBackup() *Entry {
	for i := len(m.History) - 1; i >= 0; i-- {
		if m.History[i].BackupSHA256 != "" {
			return &m.History[i]
		}
	}
	return nil
}

// Prune drops the oldest history entries exceeding keepLast and returns how
// many were removed. The newest backup entry always survives so the slot
// can still be verified.
func (m *Manifest) Prune(keepLast int) int {
	if keepLast <= 0 || len(m.History) <= keepLast {
		return 0
	}

	toRemove := len(m.History) - keepLast
	kept := m.History[toRemove:]

	latest := m.LatestBackup()
	if latest != nil {
		found := false
		for i := range kept {
			if kept[i] == *latest {
				found = true
				break
			}
		}
		if !found {
			kept = append([]Entry{*latest}, kept...)
			toRemove--
		}
	}

	m.History = append([]Entry(nil), kept...)
	return toRemove
}

// ComputeSHA256 calculates the SHA-256 hash of a file.
func ComputeSHA256(fsys ports.FileSystem, filePath string) (string, error) {
	f, err := fsys.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// TakeSnapshot hashes every regular file under root. Keys are slash-separated
// paths relative to root.
func TakeSnapshot(fsys ports.FileSystem, root string) (map[string]FileRecord, error) {
	files := make(map[string]FileRecord)
	err := fsys.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sum, err := ComputeSHA256(fsys, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = FileRecord{SHA256: sum, SizeBytes: info.Size()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
