package permissions

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFixPermissions_DefaultsTo0644(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "all.json")
	if err := os.WriteFile(testFile, []byte("{}"), 0o400); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	if err := FixPermissions(testFile, -1, -1, 0); err != nil {
		t.Errorf("FixPermissions failed: %v", err)
	}

	info, err := os.Stat(testFile)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != defaultFileMode {
		t.Errorf("got mode %o, want %o", info.Mode().Perm(), defaultFileMode)
	}
}

func TestFixPermissions_ExplicitMode(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "season-1.json")
	if err := os.WriteFile(testFile, []byte("{}"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	if err := FixPermissions(testFile, -1, -1, 0o640); err != nil {
		t.Errorf("FixPermissions failed: %v", err)
	}

	info, err := os.Stat(testFile)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("got mode %o, want %o", info.Mode().Perm(), 0o640)
	}
}

func TestFixPermissions_NegativeUIDGIDLeavesOwnershipUnchanged(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "all.json")
	if err := os.WriteFile(testFile, []byte("{}"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	beforeUID, beforeGID, err := GetFileOwnership(testFile)
	if err != nil {
		t.Fatalf("GetFileOwnership failed: %v", err)
	}

	if err := FixPermissions(testFile, -1, -1, 0o644); err != nil {
		t.Errorf("FixPermissions failed: %v", err)
	}

	afterUID, afterGID, err := GetFileOwnership(testFile)
	if err != nil {
		t.Fatalf("GetFileOwnership failed: %v", err)
	}
	if afterUID != beforeUID || afterGID != beforeGID {
		t.Errorf("ownership changed with uid=gid=-1: before=(%d,%d) after=(%d,%d)", beforeUID, beforeGID, afterUID, afterGID)
	}
}

func TestGetFileOwnership(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "all.json")
	if err := os.WriteFile(testFile, []byte("{}"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	uid, gid, err := GetFileOwnership(testFile)
	if err != nil {
		t.Errorf("GetFileOwnership failed: %v", err)
	}
	if uid < 0 || gid < 0 {
		t.Errorf("invalid ownership: uid=%d, gid=%d", uid, gid)
	}
}
