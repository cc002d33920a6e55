package fs

import (
	"os"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func writeTempFile(t *testing.T, content string) string {
	file, err := os.CreateTemp("", "tail_test_")
	if err != nil {
		t.Fatalf("cannot create temp file: %v", err)
	}
	if _, err := file.WriteString(content); err != nil {
		t.Fatalf("cannot write temp file: %v", err)
	}
	file.Close()
	t.Cleanup(func() { os.Remove(file.Name()) })

	return file.Name()
}

func TestReadTail(t *testing.T) {
	Convey("While reading the tail of a file", t, func() {
		Convey("The last N lines are returned in order", func() {
			path := writeTempFile(t, "one\ntwo\nthree\nfour\nfive\n")

			tail, err := ReadTail(path, 2)
			So(err, ShouldBeNil)
			So(tail, ShouldEqual, "four\nfive")
		})

		Convey("Asking for more lines than exist returns the whole file", func() {
			path := writeTempFile(t, "only\nlines\n")

			tail, err := ReadTail(path, 10)
			So(err, ShouldBeNil)
			So(tail, ShouldEqual, "only\nlines")
		})

		Convey("An empty file yields an empty tail", func() {
			path := writeTempFile(t, "")

			tail, err := ReadTail(path, 5)
			So(err, ShouldBeNil)
			So(tail, ShouldEqual, "")
		})

		Convey("A missing file is an error", func() {
			_, err := ReadTail("/nonexistent/file", 5)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestReadTailBytes(t *testing.T) {
	Convey("While reading the last bytes of a file", t, func() {
		Convey("Only the requested byte count is returned", func() {
			path := writeTempFile(t, strings.Repeat("x", 100)+"TAIL")

			tail, err := ReadTailBytes(path, 4)
			So(err, ShouldBeNil)
			So(tail, ShouldEqual, "TAIL")
		})

		Convey("A short file is returned whole", func() {
			path := writeTempFile(t, "short")

			tail, err := ReadTailBytes(path, 2048)
			So(err, ShouldBeNil)
			So(tail, ShouldEqual, "short")
		})
	})
}
