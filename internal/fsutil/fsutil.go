// Package fsutil collects the small filesystem primitives the persistent
// store needs: existence checks, a fallback-aware rename, a recursive
// directory copy, and a directory walk for stray-file detection.
//
// Grounded on the teacher's fs.go (IsDir, IsRegular, IsEmptyDirOrNotExist,
// renameWithFallback); CopyDir is rewritten on top of
// github.com/termie/go-shutil's CopyFile instead of the teacher's
// hand-rolled recursive copy, and WalkStore is new, built on
// github.com/karrick/godirwalk.
package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	"github.com/termie/go-shutil"
)

// IsRegular reports whether name exists and is a regular file.
func IsRegular(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if fi.IsDir() {
		return false, errors.Errorf("%q is a directory, should be a file", name)
	}
	return true, nil
}

// IsDir reports whether name exists and is a directory.
func IsDir(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !fi.IsDir() {
		return false, errors.Errorf("%q is not a directory", name)
	}
	return true, nil
}

// IsEmptyDirOrNotExist reports whether name is an empty directory or
// doesn't exist at all.
func IsEmptyDirOrNotExist(name string) (bool, error) {
	entries, err := os.ReadDir(name)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}

// RenameWithFallback attempts to rename src to dest, falling back to a
// recursive copy-then-remove when the rename fails because src and dest
// are on different devices.
func RenameWithFallback(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if runtime.GOOS == "windows" && fi.IsDir() {
		if err := CopyDir(src, dest); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}

	err = os.Rename(src, dest)
	if err == nil {
		return nil
	}

	terr, ok := err.(*os.LinkError)
	if !ok {
		return err
	}

	var cerr error
	switch {
	case terr.Err == syscall.EXDEV && fi.IsDir():
		cerr = CopyDir(src, dest)
	case terr.Err == syscall.EXDEV:
		cerr = shutil.CopyFile(src, dest, true)
	default:
		return terr
	}
	if cerr != nil {
		return cerr
	}
	return os.RemoveAll(src)
}

// CopyDir recursively copies src to dest, preserving the directory
// structure. Each regular file is copied with shutil.CopyFile rather than
// a hand-rolled byte copy.
func CopyDir(src, dest string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return errors.Wrapf(err, "fsutil: stat %s", src)
	}
	if err := os.MkdirAll(dest, srcInfo.Mode()); err != nil {
		return errors.Wrapf(err, "fsutil: mkdir %s", dest)
	}

	return godirwalk.Walk(src, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			rel, err := filepath.Rel(src, osPathname)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}
			target := filepath.Join(dest, rel)
			if de.IsDir() {
				info, err := os.Stat(osPathname)
				if err != nil {
					return err
				}
				return os.MkdirAll(target, info.Mode())
			}
			return shutil.CopyFile(osPathname, target, true)
		},
	})
}

// StrayFile is one unexpected file found under a store directory by
// WalkStore.
type StrayFile struct {
	Path string
}

// WalkStore walks root (a store directory) and calls visit for every
// regular file whose base name is not in expected. No command calls it;
// `fmt` only re-saves the store files.
func WalkStore(root string, expected map[string]bool, visit func(StrayFile) error) error {
	return godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			name := filepath.Base(osPathname)
			if expected[name] {
				return nil
			}
			return visit(StrayFile{Path: osPathname})
		},
	})
}
