package auth

import (
	"errors"
	"strconv"
	"strings"
)

var ErrUnknownGenerator = errors.New("unrecognized remote generator string")

const generatorPrefix = "MediaWiki "

// Version is a parsed remote software version. Pre-release suffixes such as
// "1.39.0-wmf.5" are truncated at the first non-numeric segment character.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseGenerator extracts the software version from a siteinfo generator
// string of the form "MediaWiki X.Y.Z".
func ParseGenerator(generator string) (Version, error) {
	if !strings.HasPrefix(generator, generatorPrefix) {
		return Version{}, ErrUnknownGenerator
	}
	return ParseVersion(strings.TrimPrefix(generator, generatorPrefix))
}

func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ".", 3)
	if len(parts) < 2 {
		return Version{}, ErrUnknownGenerator
	}

	nums := make([]int, 0, 3)
	for _, part := range parts {
		digits := part
		for i, r := range part {
			if r < '0' || r > '9' {
				digits = part[:i]
				break
			}
		}
		if digits == "" {
			break
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return Version{}, ErrUnknownGenerator
		}
		nums = append(nums, n)
	}

	if len(nums) < 2 {
		return Version{}, ErrUnknownGenerator
	}

	v := Version{Major: nums[0], Minor: nums[1]}
	if len(nums) > 2 {
		v.Patch = nums[2]
	}
	return v, nil
}

// Before reports whether v is strictly older than other.
func (v Version) Before(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}
