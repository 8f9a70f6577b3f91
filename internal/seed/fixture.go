// Package seed loads demo and test data into the store from a YAML fixture.
package seed

import (
	"errors"
	"io"
	"net/netip"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML document accepted by the seeder.
type Fixture struct {
	Organizations []OrganizationFixture `yaml:"organizations"`
	Blocks        []BlockFixture        `yaml:"blocks"`
	Leads         []LeadFixture         `yaml:"leads"`
	Snapshots     []SnapshotFixture     `yaml:"snapshots"`
}

type OrganizationFixture struct {
	Name string `yaml:"name"`
}

type BlockFixture struct {
	CIDR string `yaml:"cidr"`
	// Org is created when missing.
	Org       string     `yaml:"org"`
	CreatedAt *time.Time `yaml:"created_at"`
}

type LeadFixture struct {
	OrgName        string                 `yaml:"org_name"`
	CIDR           string                 `yaml:"cidr"`
	Score          int                    `yaml:"score"`
	Stage          string                 `yaml:"stage"`
	Owner          string                 `yaml:"owner"`
	NextActionDate *time.Time             `yaml:"next_action_date"`
	CreatedAt      *time.Time             `yaml:"created_at"`
	ScoreBreakdown map[string]interface{} `yaml:"score_breakdown"`
	Notes          string                 `yaml:"notes"`
}

type SnapshotFixture struct {
	CIDR      string                 `yaml:"cidr"`
	RawData   map[string]interface{} `yaml:"raw_data"`
	Timestamp *time.Time             `yaml:"timestamp"`
}

// ParseFixture decodes a fixture, rejecting unknown keys.
func ParseFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, eris.Wrap(err, "decode seed fixture")
	}
	return &f, nil
}

// NormalizeCIDR validates an IPv4 prefix and returns its canonical form and
// address count (2^(32-prefix)).
func NormalizeCIDR(cidr string) (string, int64, error) {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return "", 0, eris.Wrapf(err, "parse cidr %q", cidr)
	}
	if !p.Addr().Is4() {
		return "", 0, eris.Errorf("cidr %q is not IPv4", cidr)
	}
	return p.Masked().String(), int64(1) << (32 - p.Bits()), nil
}
