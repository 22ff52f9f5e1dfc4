// Package buildinfo carries version data stamped by the linker:
//
//	go build -ldflags "-X 'github.com/m3rciful/cbrbot/core/buildinfo.Version=v1.0.0' \
//	  -X 'github.com/m3rciful/cbrbot/core/buildinfo.Commit=abcdef0' \
//	  -X 'github.com/m3rciful/cbrbot/core/buildinfo.Date=2026-10-17T12:00:00Z'"
package buildinfo

import (
	"runtime/debug"
	"strings"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Revision returns Commit, or the VCS revision recorded by the Go toolchain
// when the linker did not stamp one.
func Revision() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "local"
}

// String renders "cbrbot <version> (<revision>, <date>)".
func String() string {
	parts := []string{Revision()}
	if Date != "" {
		parts = append(parts, Date)
	}
	return "cbrbot " + Version + " (" + strings.Join(parts, ", ") + ")"
}
