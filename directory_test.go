package xhashdb

import (
	"path/filepath"
	"testing"
)

func TestBucketsFileFreshInit(t *testing.T) {
	dir := t.TempDir()
	f, count, err := openBucketsFile(filepath.Join(dir, "buckets.db"))
	if err != nil {
		t.Fatalf("openBucketsFile: %v", err)
	}
	defer f.Close()

	if count != 1 {
		t.Fatalf("fresh buckets file count = %d, want 1", count)
	}

	b, err := readBucket(f, 0)
	if err != nil {
		t.Fatalf("readBucket: %v", err)
	}
	if b.level != 0 || len(b.records) != 0 {
		t.Fatalf("fresh bucket 0 = %+v, want empty level-0 bucket", b)
	}
}

func TestBucketsFilePersistCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buckets.db")

	f, _, err := openBucketsFile(path)
	if err != nil {
		t.Fatalf("openBucketsFile: %v", err)
	}
	if err := writeBucketCount(f, 7); err != nil {
		t.Fatalf("writeBucketCount: %v", err)
	}
	f.Close()

	f2, count, err := openBucketsFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f2.Close()
	if count != 7 {
		t.Fatalf("reloaded count = %d, want 7", count)
	}
}

func TestDirectoryFileFreshInit(t *testing.T) {
	f, dir, level, err := openDirectoryFile(filepath.Join(t.TempDir(), "dir.db"))
	if err != nil {
		t.Fatalf("openDirectoryFile: %v", err)
	}
	defer f.Close()

	if level != 0 || len(dir) != 1 || dir[0] != 0 {
		t.Fatalf("fresh directory = %v level %d, want [0] level 0", dir, level)
	}
}

func TestDirectoryPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir.db")

	f, _, _, err := openDirectoryFile(path)
	if err != nil {
		t.Fatalf("openDirectoryFile: %v", err)
	}

	want := []uint32{0, 1, 5, 2, 0, 3, 6, 4}
	if err := saveDirectory(f, want, 3); err != nil {
		t.Fatalf("saveDirectory: %v", err)
	}
	f.Close()

	f2, dir, level, err := openDirectoryFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f2.Close()

	if level != 3 || len(dir) != len(want) {
		t.Fatalf("reloaded dir=%v level=%d, want %v level 3", dir, level, want)
	}
	for i := range want {
		if dir[i] != want[i] {
			t.Fatalf("entry %d = %d, want %d", i, dir[i], want[i])
		}
	}
}
