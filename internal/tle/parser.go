package tle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// lineLength is the fixed width of both element lines.
const lineLength = 69

// Parse reads 3-line NORAD TLE format from r and returns parsed entries.
// Malformed entries are skipped with a warning log.
func Parse(r io.Reader, logger *slog.Logger) ([]TLEEntry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []TLEEntry
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		// Validate line prefixes.
		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			// Try to find next valid triplet.
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			i++
			continue
		}

		entry, err := ParseElements(name, line1, line2)
		if err != nil {
			logger.Warn("skipping invalid TLE entry", "name", strings.TrimSpace(name), "error", err)
			i += 3
			continue
		}

		entries = append(entries, entry)
		i += 3
	}

	return entries, nil
}

// ParseElements parses a single named element set strictly. Any defect in
// the lines is reported as a *ParseError; nothing is returned partially.
func ParseElements(name, line1, line2 string) (TLEEntry, error) {
	name = strings.TrimSpace(name)
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if err := ValidateLines(line1, line2); err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Name = name
		}
		return TLEEntry{}, err
	}

	// Extract NORAD ID from line1 cols 3-7 (0-indexed: 2..7).
	noradStr := strings.TrimSpace(line1[2:7])
	noradID, err := strconv.Atoi(noradStr)
	if err != nil {
		return TLEEntry{}, &ParseError{Name: name, Field: "norad_id", Err: err}
	}

	// Extract epoch from line1 cols 19-32 (0-indexed: 18..32).
	epochStr := strings.TrimSpace(line1[18:32])
	epoch, err := parseEpoch(epochStr)
	if err != nil {
		return TLEEntry{}, &ParseError{Name: name, Field: "epoch", Err: err}
	}

	if name == "" {
		name = noradStr
	}

	return TLEEntry{
		NORADID: noradID,
		Name:    name,
		Epoch:   epoch,
		Line1:   line1,
		Line2:   line2,
	}, nil
}

// ValidateLines checks the fixed-column layout, checksums and numeric fields of
// an element set. go-satellite calls log.Fatal on fields it cannot parse, so
// every field it reads is checked here first.
func ValidateLines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != lineLength {
		return &ParseError{Field: "line1", Err: fmt.Errorf("length %d, expected %d", len(line1), lineLength)}
	}
	if len(line2) != lineLength {
		return &ParseError{Field: "line2", Err: fmt.Errorf("length %d, expected %d", len(line2), lineLength)}
	}
	if line1[0] != '1' || line1[1] != ' ' {
		return &ParseError{Field: "line1", Err: fmt.Errorf("must start with '1 ', got %q", line1[:2])}
	}
	if line2[0] != '2' || line2[1] != ' ' {
		return &ParseError{Field: "line2", Err: fmt.Errorf("must start with '2 ', got %q", line2[:2])}
	}
	if err := verifyChecksum(line1); err != nil {
		return &ParseError{Field: "line1 checksum", Err: err}
	}
	if err := verifyChecksum(line2); err != nil {
		return &ParseError{Field: "line2 checksum", Err: err}
	}
	if strings.TrimSpace(line1[2:7]) != strings.TrimSpace(line2[2:7]) {
		return &ParseError{Field: "norad_id", Err: fmt.Errorf("line1 catalog %q does not match line2 catalog %q", line1[2:7], line2[2:7])}
	}

	return checkSGP4Fields(line1, line2)
}

// sgp4Field is one numeric field exactly as go-satellite's ParseTLE builds
// the string it hands to strconv.
type sgp4Field struct {
	name  string
	value string
	isInt bool
}

// sgp4Fields reproduces go-satellite's column slicing. Signed fields lose at
// most two spaces; eccentricity and the epoch day are not trimmed at all.
func sgp4Fields(line1, line2 string) []sgp4Field {
	strip := func(s string) string { return strings.Replace(s, " ", "", 2) }
	return []sgp4Field{
		{name: "epoch year", value: line1[18:20], isInt: true},
		{name: "epoch day", value: line1[20:32]},
		{name: "first derivative of mean motion", value: strip(line1[33:43])},
		{name: "second derivative of mean motion", value: strip(line1[44:45] + "." + line1[45:50] + "e" + line1[50:52])},
		{name: "bstar", value: strip(line1[53:54] + "." + line1[54:59] + "e" + line1[59:61])},
		{name: "inclination", value: strip(line2[8:16])},
		{name: "right ascension of node", value: strip(line2[17:25])},
		{name: "eccentricity", value: "." + line2[26:33]},
		{name: "argument of perigee", value: strip(line2[34:42])},
		{name: "mean anomaly", value: strip(line2[43:51])},
		{name: "mean motion", value: strip(line2[52:63])},
	}
}

// checkSGP4Fields fails on any field go-satellite would log.Fatal on.
func checkSGP4Fields(line1, line2 string) error {
	for _, f := range sgp4Fields(line1, line2) {
		var err error
		if f.isInt {
			_, err = strconv.Atoi(f.value)
		} else {
			_, err = strconv.ParseFloat(f.value, 64)
		}
		if err != nil {
			return &ParseError{Field: f.name, Err: err}
		}
	}
	return nil
}

// Checksum returns the modulo-10 checksum of the first 68 columns of a line:
// digits count their value, minus signs count one, everything else zero.
func Checksum(line string) int {
	sum := 0
	for i := 0; i < len(line) && i < lineLength-1; i++ {
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

func verifyChecksum(line string) error {
	last := line[lineLength-1]
	if last < '0' || last > '9' {
		return fmt.Errorf("checksum column %q is not a digit", last)
	}
	if want, got := Checksum(line), int(last-'0'); want != got {
		return fmt.Errorf("got %d, computed %d", got, want)
	}
	return nil
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to time.Time.
// Year 00-56 → 2000s, 57-99 → 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	yearStr := s[:2]
	dayStr := s[2:]

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", yearStr, err)
	}

	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(dayStr, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", dayStr, err)
	}
	if dayOfYear < 1 || dayOfYear >= 367 {
		return time.Time{}, fmt.Errorf("epoch day %q out of range", dayStr)
	}

	// dayOfYear is 1-based: day 1 = Jan 1.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	dur := time.Duration((dayOfYear - 1) * float64(24*time.Hour))
	return t.Add(dur), nil
}
