package runner

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/GssMahadevan/gvthread/pkg/manifest"
	"github.com/GssMahadevan/gvthread/pkg/registry"
)

func TestBuildCandidates(t *testing.T) {
	Convey("While building candidates before the matrix", t, func() {
		m, err := manifest.Parse([]byte(matrixDocument), "manifest.yml")
		So(err, ShouldBeNil)

		Convey("A succeeding build rule fails nobody", func() {
			testType := registry.TestType{
				Name: "t",
				BuildCommand: func(c *manifest.Candidate, profile string) string {
					return "true"
				},
			}
			So(BuildCandidates(m, testType, "", "release"), ShouldBeEmpty)
		})

		Convey("A failing build marks the candidate and the rest proceed", func() {
			testType := registry.TestType{
				Name: "t",
				BuildCommand: func(c *manifest.Candidate, profile string) string {
					if c.Name == "go-httpd" {
						return "false"
					}
					return "true"
				},
			}
			So(BuildCandidates(m, testType, "", "release"), ShouldResemble, []string{"go-httpd"})
		})

		Convey("Candidates without a build rule are skipped", func() {
			testType := registry.TestType{Name: "t"}
			So(BuildCandidates(m, testType, "", "release"), ShouldBeEmpty)
		})
	})
}
