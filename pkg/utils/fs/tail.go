package fs

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

// maxTailBytes bounds how much of a file is pulled into memory when reading
// its tail. Diagnostic output of a crashed server can be arbitrarily large.
const maxTailBytes = 64 * 1024

// ReadTail returns up to lineCount last lines of the file at filePath.
func ReadTail(filePath string, lineCount int) (tail string, err error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", errors.Wrapf(err, "could not read tail of %q", filePath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrapf(err, "could not stat %q", filePath)
	}

	offset := int64(0)
	size := info.Size()
	if size > maxTailBytes {
		offset = size - maxTailBytes
	}

	buf := make([]byte, size-offset)
	_, err = f.ReadAt(buf, offset)
	if err != nil {
		return "", errors.Wrapf(err, "could not read tail of %q", filePath)
	}

	lines := strings.Split(strings.TrimRight(string(buf), "\n"), "\n")
	if len(lines) > lineCount {
		lines = lines[len(lines)-lineCount:]
	}

	return strings.Join(lines, "\n"), nil
}

// ReadTailBytes returns up to byteCount last bytes of the file at filePath.
func ReadTailBytes(filePath string, byteCount int64) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", errors.Wrapf(err, "could not read tail of %q", filePath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrapf(err, "could not stat %q", filePath)
	}

	offset := int64(0)
	size := info.Size()
	if size > byteCount {
		offset = size - byteCount
	}

	buf := make([]byte, size-offset)
	_, err = f.ReadAt(buf, offset)
	if err != nil {
		return "", errors.Wrapf(err, "could not read tail of %q", filePath)
	}

	return string(buf), nil
}
