// Package version reports build metadata and checks for newer releases.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/google/go-github/v30/github"
)

// Version is set at build time:
// go build -ldflags "-X github.com/tesh254/llmstxt/internal/version.Version=v0.2.0".
var Version = "dev"

var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	repoOwner = "tesh254"
	repoName  = "llmstxt"
)

// BuildInfo is the build metadata of the running binary.
type BuildInfo struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	GitTag     string `json:"git_tag"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Compiler   string `json:"compiler"`
	IsModified bool   `json:"is_modified"`
	ModulePath string `json:"module_path,omitempty"`
	ModuleSum  string `json:"module_sum,omitempty"`
}

// GetBuildInfo merges the ldflags values with what the Go toolchain embedded.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GitTag:    "unknown",
		BuildDate: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Compiler:  runtime.Compiler,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.ModulePath = bi.Main.Path
	info.ModuleSum = bi.Main.Sum
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	if strings.HasPrefix(info.Version, "v") && !strings.Contains(info.Version, "-") {
		info.GitTag = info.Version
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.IsModified = s.Value == "true"
		}
	}
	return info
}

// GetVersion returns the version string, e.g. "v0.2.0" or "dev".
func GetVersion() string {
	return GetBuildInfo().Version
}

func GetShortVersion() string {
	return strings.TrimPrefix(GetVersion(), "v")
}

func GetVersionWithCommit() string {
	info := GetBuildInfo()
	commit := info.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (%s)", info.Version, commit)
}

func GetDetailedVersion() string {
	info := GetBuildInfo()
	var b strings.Builder
	fmt.Fprintf(&b, "llmstxt %s\n", info.Version)
	fmt.Fprintf(&b, "commit: %s\n", info.GitCommit)
	fmt.Fprintf(&b, "built: %s\n", info.BuildDate)
	fmt.Fprintf(&b, "go: %s %s", info.GoVersion, info.Platform)
	return b.String()
}

func GetJSONVersion() string {
	data, err := json.MarshalIndent(GetBuildInfo(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// IsRelease reports whether the binary carries a semantic release version.
func IsRelease() bool {
	v, err := semver.ParseTolerant(GetVersion())
	return err == nil && len(v.Pre) == 0 && !GetBuildInfo().IsModified
}

func IsDevelopment() bool {
	return !IsRelease()
}

// Update describes the result of a release check.
type Update struct {
	Current   semver.Version
	Latest    semver.Version
	Available bool
}

// CheckLatest compares the running version against the latest GitHub
// release. client may be nil to use the public API.
func CheckLatest(ctx context.Context, client *github.Client) (*Update, error) {
	current, err := semver.ParseTolerant(GetVersion())
	if err != nil {
		return nil, fmt.Errorf("current version %q is not a release: %w", GetVersion(), err)
	}
	return checkAgainst(ctx, client, current)
}

func checkAgainst(ctx context.Context, client *github.Client, current semver.Version) (*Update, error) {
	if client == nil {
		client = github.NewClient(nil)
	}
	release, _, err := client.Repositories.GetLatestRelease(ctx, repoOwner, repoName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	latest, err := semver.ParseTolerant(release.GetTagName())
	if err != nil {
		return nil, fmt.Errorf("invalid release tag %q: %w", release.GetTagName(), err)
	}
	return &Update{Current: current, Latest: latest, Available: latest.GT(current)}, nil
}
