// Package fstore maps a storage root to a dense, zero-based, integer-indexed
// trajectory file namespace and the sibling directories used by training runs.
package fstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/trajstore/internal/traj"
)

// NumericFileCount counts files in dir whose basename is a non-negative
// integer and whose extension matches ext. A folder holding (7.traj, 11.traj,
// 4.traj) counts as 3: the result is a cardinality, not max-index+1.
func NumericFileCount(dir, ext string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ext) {
			continue
		}
		base := strings.TrimSuffix(name, ext)
		if n, err := strconv.Atoi(base); err == nil && n >= 0 {
			count++
		}
	}
	return count, nil
}

// NextNumericFile returns the path for the next file in the sequence: the
// index equal to the current count. It assumes prior files are densely
// numbered from 0 and does not verify it. No locking is performed; two
// writers may compute the same name, in which case the last write wins.
func NextNumericFile(dir, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	n, err := NumericFileCount(dir, ext)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, strconv.Itoa(n)+ext), nil
}

// Store resolves paths inside one storage root.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string      { return s.root }
func (s *Store) DataDir() string   { return filepath.Join(s.root, "data") }
func (s *Store) ModelsDir() string { return filepath.Join(s.root, "models") }
func (s *Store) LogsDir() string   { return filepath.Join(s.root, "logs") }
func (s *Store) TmpDir() string    { return filepath.Join(s.root, "tmp") }

// EnsureLayout creates the storage tree. Idempotent; meant to be called once
// by the composing application rather than as an import side effect.
func (s *Store) EnsureLayout() error {
	for _, dir := range []string{s.DataDir(), s.ModelsDir(), s.LogsDir(), s.TmpDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// TrajectoryCount reports how many trajectory files exist in the data dir.
func (s *Store) TrajectoryCount() (int, error) {
	return NumericFileCount(s.DataDir(), traj.Extension)
}

// TrajectoryPath returns the path of trajectory index i.
func (s *Store) TrajectoryPath(i int) string {
	return filepath.Join(s.DataDir(), strconv.Itoa(i)+traj.Extension)
}

// NextTrajectoryPath returns the path for a new trajectory appended after the
// existing ones. Subject to the NextNumericFile race.
func (s *Store) NextTrajectoryPath() (string, error) {
	return NextNumericFile(s.DataDir(), traj.Extension)
}

func (s *Store) SaveTrajectory(i int, t traj.Trajectory) error {
	return traj.Save(s.TrajectoryPath(i), t)
}

func (s *Store) LoadTrajectory(i int) (traj.Trajectory, error) {
	return traj.Load(s.TrajectoryPath(i))
}

// Import synchronizes the data dir with srcDir. Counts matching means the
// data is treated as already synchronized and nothing happens. Any mismatch
// is resolved by deleting the whole data dir and copying srcDir wholesale;
// there is no per-file reconciliation.
func (s *Store) Import(srcDir string) error {
	haveCount, err := s.TrajectoryCount()
	if err != nil {
		return err
	}
	wantCount, err := NumericFileCount(srcDir, traj.Extension)
	if err != nil {
		return err
	}
	if haveCount == wantCount {
		return nil
	}

	if err := os.RemoveAll(s.DataDir()); err != nil {
		return fmt.Errorf("clear data dir: %w", err)
	}
	if err := copyTree(srcDir, s.DataDir()); err != nil {
		return fmt.Errorf("import from %s: %w", srcDir, err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
