package types //nolint:revive // types is a valid package name

import (
	"regexp"
	"testing"
)

var semverRegex = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)

func TestVersion_Format(t *testing.T) {
	if !semverRegex.MatchString(Version) {
		t.Errorf("Version %q is not a valid semver", Version)
	}
}

func TestAlertContractVersion_Format(t *testing.T) {
	// The alert contract versions independently of the binary.
	if !semverRegex.MatchString(AlertContractVersion) {
		t.Errorf("AlertContractVersion %q is not a valid semver", AlertContractVersion)
	}
}
