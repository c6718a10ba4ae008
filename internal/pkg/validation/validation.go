package validation

import (
	"regexp"
	"strings"
)

const (
	// ServiceTextMin/Max bound the free-text service description on a
	// processing location ("EU-West object storage", "payroll processing").
	ServiceTextMin = 2
	ServiceTextMax = 255

	NameMax          = 255
	JustificationMax = 2000
)

// ISO 3166-1 alpha-2, upper case.
var isoCode2Re = regexp.MustCompile(`^[A-Z]{2}$`)

// IsValidServiceText checks the trimmed length bounds for a service description.
func IsValidServiceText(s string) bool {
	n := len(strings.TrimSpace(s))
	return n >= ServiceTextMin && n <= ServiceTextMax
}

// IsValidName checks a required display name.
func IsValidName(s string) bool {
	n := len(strings.TrimSpace(s))
	return n > 0 && n <= NameMax
}

// IsValidJustification checks the mandatory override justification: non-empty
// after trimming, bounded so audit exports stay sane.
func IsValidJustification(s string) bool {
	n := len(strings.TrimSpace(s))
	return n > 0 && n <= JustificationMax
}

// IsValidIsoCode2 checks an ISO 3166-1 alpha-2 country code.
func IsValidIsoCode2(s string) bool {
	return isoCode2Re.MatchString(s)
}
