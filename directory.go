// directory.go -- directory and buckets-file persistence
//
// Buckets file header: first 4 bytes are bucket_count (u32 LE). Bucket k
// lives at byte offset 4 + k*4096. An empty buckets file is initialized by
// writing one empty bucket at index 0, bringing bucket_count to 1.
//
// Directory file layout:
//
//	offset  size        field
//	0       1           global_level (u8)
//	1       N*4         directory entries, N = 2^global_level, u32 LE
//
// Both files are loaded in full at startup and written in full on
// shutdown; there is no per-page directory paging.

package xhashdb

import (
	"encoding/binary"
	"io"
	"os"
)

const (
	bucketCountBytes = 4 // u32
	dirEntryBytes    = 4 // u32, BucketIndex
	globalLevelBytes = 1 // u8
)

// openBucketsFile opens (creating if necessary) the buckets file and
// returns the handle plus the loaded bucket count. A freshly created file
// is initialized with one empty bucket at index 0.
func openBucketsFile(path string) (*os.File, uint32, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, 0, NewError(ErrCodeIO, "open buckets file", err).WithDetail("path", path)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, NewError(ErrCodeIO, "stat buckets file", err)
	}

	if fi.Size() == 0 {
		empty := (&bucket{index: 0, level: 0}).encode()
		if err := writeBucketCount(f, 1); err != nil {
			f.Close()
			return nil, 0, err
		}
		if _, err := f.WriteAt(empty, int64(bucketCountBytes)); err != nil {
			f.Close()
			return nil, 0, NewError(ErrCodeIO, "write initial bucket", err)
		}
		return f, 1, nil
	}

	count, err := readBucketCount(f)
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, count, nil
}

func readBucketCount(f *os.File) (uint32, error) {
	var buf [bucketCountBytes]byte
	if _, err := f.ReadAt(buf[:], 0); err != nil {
		return 0, NewError(ErrCodeIO, "read bucket count", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeBucketCount(f *os.File, count uint32) error {
	var buf [bucketCountBytes]byte
	binary.LittleEndian.PutUint32(buf[:], count)
	if _, err := f.WriteAt(buf[:], 0); err != nil {
		return NewError(ErrCodeIO, "write bucket count", err)
	}
	return nil
}

// bucketOffset returns the byte offset in the buckets file of bucket idx.
func bucketOffset(idx uint32) int64 {
	return int64(bucketCountBytes) + int64(idx)*pageBytes
}

// readBucket loads and parses the page at bucket idx.
func readBucket(f *os.File, idx uint32) (*bucket, error) {
	page := make([]byte, pageBytes)
	if _, err := f.ReadAt(page, bucketOffset(idx)); err != nil {
		if err == io.EOF {
			return nil, NewError(ErrCodeCorruptPage, "bucket index out of range", err).
				WithDetail("bucket", idx)
		}
		return nil, NewError(ErrCodeIO, "read bucket", err).WithDetail("bucket", idx)
	}
	return decodeBucket(page, idx)
}

// writeBucket serializes and writes b to its slot in the buckets file.
func writeBucket(f *os.File, b *bucket) error {
	page := b.encode()
	if _, err := f.WriteAt(page, bucketOffset(b.index)); err != nil {
		return NewError(ErrCodeIO, "write bucket", err).WithDetail("bucket", b.index)
	}
	return nil
}

// openDirectoryFile opens (creating if necessary) the directory file and
// returns the handle plus the loaded lookup vector and global level. A
// freshly created file yields the empty-database default: one entry
// pointing at bucket 0, global level 0.
func openDirectoryFile(path string) (*os.File, []uint32, uint8, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, nil, 0, NewError(ErrCodeIO, "open directory file", err).WithDetail("path", path)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, 0, NewError(ErrCodeIO, "stat directory file", err)
	}

	if fi.Size() == 0 {
		return f, []uint32{0}, 0, nil
	}

	dir, level, err := loadDirectory(f)
	if err != nil {
		f.Close()
		return nil, nil, 0, err
	}
	return f, dir, level, nil
}

// loadDirectory reads the entire directory file into memory.
func loadDirectory(f *os.File) ([]uint32, uint8, error) {
	var levelBuf [globalLevelBytes]byte
	if _, err := f.ReadAt(levelBuf[:], 0); err != nil {
		return nil, 0, NewError(ErrCodeIO, "read global level", err)
	}
	level := levelBuf[0]

	n := 1 << level
	buf := make([]byte, n*dirEntryBytes)
	if _, err := f.ReadAt(buf, globalLevelBytes); err != nil {
		return nil, 0, NewError(ErrCodeCorruptPage, "truncated directory file", err)
	}

	dir := make([]uint32, n)
	for i := 0; i < n; i++ {
		dir[i] = binary.LittleEndian.Uint32(buf[i*dirEntryBytes:])
	}
	return dir, level, nil
}

// saveDirectory writes the entire directory vector and its global level to
// the directory file.
func saveDirectory(f *os.File, dir []uint32, level uint8) error {
	buf := make([]byte, globalLevelBytes+len(dir)*dirEntryBytes)
	buf[0] = level
	for i, idx := range dir {
		binary.LittleEndian.PutUint32(buf[globalLevelBytes+i*dirEntryBytes:], idx)
	}
	if _, err := f.WriteAt(buf, 0); err != nil {
		return NewError(ErrCodeIO, "write directory", err)
	}
	return nil
}
