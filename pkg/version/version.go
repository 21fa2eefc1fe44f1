package version

import (
	"fmt"
	"regexp"
	"runtime/debug"
	"strings"

	"github.com/blang/semver/v4"
)

// DevVersion is reported by builds without release version information.
const DevVersion = "dev"

// version is overridden at release time via
// -ldflags "-X github.com/skevetter/contain/pkg/version.version=v0.5.0"
var version = DevVersion

var versionPattern = regexp.MustCompile(`^(\d+\.\d+\.\d+)`)

// GetVersion returns the version of the running binary.
func GetVersion() string {
	if version != "" && version != DevVersion {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return DevVersion
}

// Parse extracts the major.minor.patch portion of a version string, so
// release suffixes such as 0.5.0-rc.1+build or v0.5.0-dirty are accepted.
// Shorter forms like 0.5 are padded with zeros.
func Parse(v string) (semver.Version, error) {
	v = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "v"))
	if matches := versionPattern.FindStringSubmatch(v); len(matches) == 2 {
		return semver.Parse(matches[1])
	}

	parsed, err := semver.ParseTolerant(v)
	if err != nil {
		return semver.Version{}, fmt.Errorf("invalid version format: %s", v)
	}
	return parsed, nil
}

// CheckMinimum reports whether current satisfies the required minimum.
// Development builds satisfy every minimum.
func CheckMinimum(required, current string) (bool, error) {
	minimum, err := Parse(required)
	if err != nil {
		return false, err
	}

	if current == DevVersion {
		return true, nil
	}

	running, err := Parse(current)
	if err != nil {
		return false, err
	}

	return running.Compare(minimum) >= 0, nil
}
