package ddl

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPolicy decides which DEFAULT expressions AddColumn accepts.
type DefaultPolicy string

const (
	// DefaultPassthrough writes the operator's expression verbatim.
	DefaultPassthrough DefaultPolicy = "passthrough"
	// DefaultStrict accepts only literals, NULL, booleans, the CURRENT_*
	// keywords and zero-argument function calls.
	DefaultStrict DefaultPolicy = "strict"
)

// ParseDefaultPolicy maps a config value to a policy. Empty means passthrough.
func ParseDefaultPolicy(s string) (DefaultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(DefaultPassthrough):
		return DefaultPassthrough, nil
	case string(DefaultStrict):
		return DefaultStrict, nil
	}
	return "", fmt.Errorf("unknown default policy %q (expected passthrough or strict)", s)
}

var strictDefaults = []*regexp.Regexp{
	regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`),
	regexp.MustCompile(`^'([^']|'')*'$`),
	regexp.MustCompile(`(?i)^(NULL|TRUE|FALSE|CURRENT_TIMESTAMP|CURRENT_DATE|CURRENT_TIME|LOCALTIMESTAMP|SYSDATE)$`),
	regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\(\)$`),
}

// Check validates a DEFAULT expression against the policy.
func (p DefaultPolicy) Check(expr string) error {
	if p != DefaultStrict {
		return nil
	}
	for _, re := range strictDefaults {
		if re.MatchString(expr) {
			return nil
		}
	}
	return fmt.Errorf("default expression %q is not allowed by the strict default policy", expr)
}
