package manifest

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const sampleDocument = `
common:
  light:
    desc: "small steady load"
    parallelism: 4
    cpu_cores: 4
    warmup_sec: 2
    measure_sec: 5
    keepalive: true
    wrk_connections: 64
  heavy:
    desc: "saturating load"
    parallelism: 8
    wrk_connections: 512
apps:
  go-httpd:
    binary: target/release/go-httpd
    lang: go
    model: goroutine
    io: epoll
    port: 8081
    configs:
      - name: default
      - name: pooled
        pool_size: 64
  rs-httpd:
    binary: target/release/rs-httpd
    lang: rust
    model: thread
    io: epoll
    port: 8082
`

func TestManifest(t *testing.T) {
	Convey("Given a well-formed benchmark document", t, func() {
		m, err := Parse([]byte(sampleDocument), "manifest.yml")
		So(err, ShouldBeNil)

		Convey("Profiles and candidates are parsed in document order", func() {
			So(m.ProfileNames(), ShouldResemble, []string{"light", "heavy"})
			So(m.CandidateNames(), ShouldResemble, []string{"go-httpd", "rs-httpd"})
		})

		Convey("Typed profile accessors coerce declared values and supply defaults", func() {
			light := m.Profiles["light"]
			So(light.Parallelism(), ShouldEqual, 4)
			So(light.WarmupSec(), ShouldEqual, 2)
			So(light.MeasureSec(), ShouldEqual, 5)
			So(light.WrkConnections(), ShouldEqual, 64)
			So(light.KeepAlive(), ShouldBeTrue)

			heavy := m.Profiles["heavy"]
			So(heavy.WarmupSec(), ShouldEqual, DefaultWarmupSec)
			So(heavy.MeasureSec(), ShouldEqual, DefaultMeasureSec)
			So(heavy.WrkThreads(), ShouldEqual, DefaultWrkThreads)
			So(heavy.CPUCores(), ShouldEqual, 0)
		})

		Convey("Declared configs keep their association with the candidate", func() {
			goHTTPD := m.Candidates["go-httpd"]
			So(len(goHTTPD.Configs), ShouldEqual, 2)
			So(goHTTPD.Configs[0].Name, ShouldEqual, "default")
			So(goHTTPD.Configs[1].Name, ShouldEqual, "pooled")
			So(goHTTPD.Configs[1].Params["pool_size"], ShouldEqual, 64)
		})

		Convey("A candidate without configs gets a synthetic default", func() {
			rsHTTPD := m.Candidates["rs-httpd"]
			So(len(rsHTTPD.Configs), ShouldEqual, 1)
			So(rsHTTPD.Configs[0].Name, ShouldEqual, "default")
			So(rsHTTPD.Configs[0].Params, ShouldBeEmpty)
		})

		Convey("Selecting a subset restricts profiles and candidates", func() {
			subset, err := m.SelectSubset("light", "go-httpd", "pooled")
			So(err, ShouldBeNil)
			So(subset.ProfileNames(), ShouldResemble, []string{"light"})
			So(subset.CandidateNames(), ShouldResemble, []string{"go-httpd"})
			So(len(subset.Candidates["go-httpd"].Configs), ShouldEqual, 1)
			So(subset.Candidates["go-httpd"].Configs[0].Name, ShouldEqual, "pooled")
		})

		Convey("Selecting an unknown profile lists the available names", func() {
			_, err := m.SelectSubset("nonexistent", "", "")
			So(err, ShouldNotBeNil)
			notFound, ok := err.(*NotFoundError)
			So(ok, ShouldBeTrue)
			So(notFound.Kind, ShouldEqual, "profile")
			So(notFound.Available, ShouldResemble, []string{"light", "heavy"})
			So(err.Error(), ShouldContainSubstring, "light")
		})

		Convey("Selecting an unknown candidate fails", func() {
			_, err := m.SelectSubset("", "nonexistent", "")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "go-httpd")
		})
	})

	Convey("Given malformed documents", t, func() {
		Convey("An empty document is rejected", func() {
			_, err := Parse([]byte(""), "manifest.yml")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "empty")
		})

		Convey("A missing common section is rejected", func() {
			_, err := Parse([]byte("apps:\n  a:\n    port: 1\n"), "manifest.yml")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "common")
		})

		Convey("A missing apps section is rejected", func() {
			_, err := Parse([]byte("common:\n  light:\n    desc: x\n"), "manifest.yml")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "apps")
		})

		Convey("A port inside a shared profile is rejected", func() {
			doc := strings.Replace(sampleDocument, "parallelism: 4", "port: 9999", 1)
			_, err := Parse([]byte(doc), "manifest.yml")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "per-candidate")
		})

		Convey("A candidate without a port is rejected", func() {
			doc := strings.Replace(sampleDocument, "    port: 8082\n", "", 1)
			_, err := Parse([]byte(doc), "manifest.yml")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "rs-httpd")
		})
	})
}

func TestProjection(t *testing.T) {
	Convey("Given a profile and a candidate config", t, func() {
		m, err := Parse([]byte(sampleDocument), "manifest.yml")
		So(err, ShouldBeNil)

		light := m.Profiles["light"]
		pooled := m.Candidates["go-httpd"].Configs[1]

		Convey("Overlap validation passes for disjoint key sets", func() {
			So(ValidateNoOverlap(light, pooled), ShouldBeEmpty)
		})

		Convey("A config key colliding with a profile key is a violation", func() {
			colliding := Config{
				Name:   "bad",
				Params: map[string]interface{}{"parallelism": 2, "pool_size": 8},
			}
			So(ValidateNoOverlap(light, colliding), ShouldResemble, []string{"parallelism"})
		})

		Convey("The config name never counts as a violation", func() {
			named := Config{Name: "parallelism", Params: map[string]interface{}{}}
			So(ValidateNoOverlap(light, named), ShouldBeEmpty)
		})

		Convey("Projection round-trips every declared key into its namespace", func() {
			env := Project(light, pooled, 8081)

			// Shared namespace: exactly the profile keys minus desc.
			shared := map[string]bool{}
			for k := range env {
				if strings.HasPrefix(k, CandidatePrefix) {
					continue
				}
				shared[strings.TrimPrefix(k, SharedPrefix)] = true
			}
			So(shared, ShouldResemble, light.Keys())
			So(env, ShouldNotContainKey, SharedPrefix+"desc")

			// Candidate namespace: the config keys plus the injected port.
			So(env[CandidatePrefix+"pool_size"], ShouldEqual, "64")
			So(env[PortVar], ShouldEqual, "8081")
			So(env, ShouldNotContainKey, CandidatePrefix+"name")

			So(env[SharedPrefix+"parallelism"], ShouldEqual, "4")
			So(env[SharedPrefix+"keepalive"], ShouldEqual, "true")
		})

		Convey("The port is injected even when absent from the config map", func() {
			env := Project(light, Config{Name: "default", Params: map[string]interface{}{}}, 8082)
			So(env[PortVar], ShouldEqual, "8082")
		})
	})
}
