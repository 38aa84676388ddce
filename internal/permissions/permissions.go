// Package permissions applies the override writer's configured
// ownership (uid/gid) and mode to a side-load file just after it is
// written, so Emby's own process — which may run under a different
// user than this one — can still read it back.
package permissions

import (
	"fmt"
	"os"
	"syscall"
)

const defaultFileMode = 0o644

// FixPermissions chmods path to mode (or defaultFileMode when mode is
// zero) then, if uid or gid is non-negative, chowns it — leaving
// whichever of uid/gid was left at -1 unchanged.
func FixPermissions(path string, uid, gid int, mode os.FileMode) error {
	if mode == 0 {
		mode = defaultFileMode
	}
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}

	if uid >= 0 || gid >= 0 {
		currentUID, currentGID, err := GetFileOwnership(path)
		if err != nil {
			return fmt.Errorf("failed to get current ownership of %s: %w", path, err)
		}

		if uid < 0 {
			uid = currentUID
		}
		if gid < 0 {
			gid = currentGID
		}

		if err := os.Chown(path, uid, gid); err != nil {
			return fmt.Errorf("failed to chown %s (may need elevated privileges): %w", path, err)
		}
	}

	return nil
}

// GetFileOwnership returns the uid and gid of a file.
func GetFileOwnership(path string) (int, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return -1, -1, err
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return -1, -1, fmt.Errorf("failed to get file stat for %s", path)
	}

	return int(stat.Uid), int(stat.Gid), nil
}
