package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var durationPattern = regexp.MustCompile(`(?i)^(?:\d+[dhms])+$`)
var durationPartPattern = regexp.MustCompile(`(?i)(\d+)([dhms])`)

// ParseRetentionInterval converts strings like "30d", "12h" or "1d12h" into a time.Duration.
func ParseRetentionInterval(input string) (time.Duration, error) {
	trimmed := strings.TrimSpace(input)
	if !durationPattern.MatchString(trimmed) {
		return 0, fmt.Errorf("invalid duration format: %q", input)
	}
	total := time.Duration(0)
	for _, parts := range durationPartPattern.FindAllStringSubmatch(trimmed, -1) {
		value, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration number: %w", err)
		}
		switch strings.ToLower(parts[2]) {
		case "d":
			total += time.Duration(value) * 24 * time.Hour
		case "h":
			total += time.Duration(value) * time.Hour
		case "m":
			total += time.Duration(value) * time.Minute
		case "s":
			total += time.Duration(value) * time.Second
		}
	}
	return total, nil
}
