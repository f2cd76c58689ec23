package listeners

import (
	"fmt"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/dispatch"
)

// ProductVersion is a decoded ProductVersionChanged. Version is nil when the
// software string is not a semantic version.
type ProductVersion struct {
	Software string
	Hardware string
	Version  *masterminds.Version
}

// ParseFirmware parses a product software string. Leading "v" and
// surrounding whitespace are ignored.
func ParseFirmware(software string) (*masterminds.Version, error) {
	s := strings.TrimPrefix(strings.TrimSpace(software), "v")
	v, err := masterminds.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("firmware %q: %w", software, err)
	}
	return v, nil
}

// FirmwarePolicy checks product versions against a constraint such as ">= 4.0".
// An empty constraint accepts everything.
type FirmwarePolicy struct {
	constraint *masterminds.Constraints
	raw        string
}

func NewFirmwarePolicy(constraint string) (*FirmwarePolicy, error) {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return &FirmwarePolicy{}, nil
	}
	c, err := masterminds.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("firmware constraint %q: %w", constraint, err)
	}
	return &FirmwarePolicy{constraint: c, raw: constraint}, nil
}

func (p *FirmwarePolicy) String() string {
	return p.raw
}

// Allows reports whether v satisfies the policy. Unparsable versions fail a
// non-empty policy.
func (p *FirmwarePolicy) Allows(v *masterminds.Version) bool {
	if p == nil || p.constraint == nil {
		return true
	}
	if v == nil {
		return false
	}
	return p.constraint.Check(v)
}

// OnProductVersion delivers ProductVersionChanged with the software string
// parsed when possible.
func OnProductVersion(reg *dispatch.Registry, fn func(ProductVersion)) dispatch.Token {
	return OnProductVersionChanged(reg, func(software, hardware string) {
		pv := ProductVersion{Software: software, Hardware: hardware}
		if v, err := ParseFirmware(software); err == nil {
			pv.Version = v
		}
		fn(pv)
	})
}
