package tle

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9996"
	issLine2 = "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495057"

	issTLE = issName + "\n" + issLine1 + "\n" + issLine2 + "\n"

	hstTLE = "HST\n" +
		"1 20580U 90037B   25045.50000000  .00001234  00000+0  56789-4 0  9993\n" +
		"2 20580  28.4690 120.1234 0002500 100.0000 260.1000 15.28000000123457\n"

	noaaTLE = "NOAA 19\n" +
		"1 33591U 09005A   25045.40000000  .00000150  00000+0  10500-3 0  9999\n" +
		"2 33591  99.1900  80.5000 0013000 300.0000  60.0000 14.12800000823455\n"

	stationsTLE = issTLE + hstTLE + noaaTLE
)

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(stationsTLE), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	iss := entries[0]
	if iss.NORADID != 25544 || iss.Name != issName {
		t.Errorf("entry = %d %q", iss.NORADID, iss.Name)
	}
	if iss.Line1 != issLine1 || iss.Line2 != issLine2 {
		t.Error("lines not preserved")
	}
	// Day 45.18032407 of 2025 = Feb 14, 04:19:40.
	want := time.Date(2025, 2, 14, 4, 19, 40, 0, time.UTC)
	if d := iss.Epoch.Sub(want); d < -time.Second || d > time.Second {
		t.Errorf("Epoch = %v, want ~%v", iss.Epoch, want)
	}
}

func TestParseToleratesNoise(t *testing.T) {
	// CRLF endings, blank lines and trailing spaces.
	input := "\r\n" + strings.ReplaceAll(issTLE, "\n", "  \r\n") + "\n\n" + hstTLE
	entries, err := Parse(strings.NewReader(input), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestParseSkipsBadEntries(t *testing.T) {
	badChecksum := "BROKEN\n" + issLine1[:68] + "5\n" + issLine2 + "\n"
	stray := "just a comment line\n"
	input := stray + badChecksum + hstTLE + noaaTLE

	entries, err := Parse(strings.NewReader(input), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].NORADID != 20580 || entries[1].NORADID != 33591 {
		t.Errorf("got %+v, want HST and NOAA 19", entries)
	}
}

func TestParseElementsErrors(t *testing.T) {
	replace := func(s string, col int, c byte) string {
		b := []byte(s)
		b[col] = c
		return string(b)
	}
	fixSum := func(s string) string {
		return s[:68] + string(rune('0'+Checksum(s)))
	}

	tests := []struct {
		name  string
		line1 string
		line2 string
		field string
	}{
		{"short line1", issLine1[:60], issLine2, "line1"},
		{"short line2", issLine1, issLine2[:60], "line2"},
		{"swapped lines", issLine2, issLine1, "line1"},
		{"line1 checksum", replace(issLine1, 68, '0'), issLine2, "line1 checksum"},
		{"line2 checksum", issLine1, replace(issLine2, 68, '0'), "line2 checksum"},
		{"checksum not a digit", replace(issLine1, 68, 'X'), issLine2, "line1 checksum"},
		{"catalog mismatch", issLine1, fixSum(replace(issLine2, 6, '5')), "norad_id"},
		{"bad inclination", issLine1, fixSum(replace(issLine2, 10, 'x')), "inclination"},
		{"bad mean motion", issLine1, fixSum(replace(issLine2, 55, 'x')), "mean motion"},
		{"bad bstar", fixSum(replace(issLine1, 58, 'x')), issLine2, "bstar"},
		// Fields go-satellite slices without trimming.
		{"spaced eccentricity", issLine1, replace(replace(issLine2, 26, ' '), 27, ' '), "eccentricity"},
		{"trailing space in epoch", fixSum(replace(issLine1, 31, ' ')), issLine2, "epoch day"},
		{"three-space ndot", fixSum(issLine1[:33] + "   .000167" + issLine1[43:]), issLine2, "first derivative of mean motion"},
		{"spaced inclination", issLine1, fixSum(issLine2[:8] + "   51.64" + issLine2[16:]), "inclination"},
		{"epoch year not a number", fixSum(replace(issLine1, 18, 'X')), issLine2, "epoch year"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseElements(issName, tt.line1, tt.line2)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *ParseError", err)
			}
			if pe.Field != tt.field {
				t.Errorf("Field = %q, want %q", pe.Field, tt.field)
			}
			if pe.Name != issName {
				t.Errorf("Name = %q, want %q", pe.Name, issName)
			}
		})
	}
}

func TestParseElementsTrimsAndNames(t *testing.T) {
	e, err := ParseElements("  ", " "+issLine1+"  ", issLine2+"\r")
	if err != nil {
		t.Fatal(err)
	}
	if e.Line1 != issLine1 || e.Line2 != issLine2 {
		t.Error("lines not trimmed")
	}
	if e.Name != "25544" {
		t.Errorf("Name = %q, want catalog number fallback", e.Name)
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{issLine1, 6},
		{issLine2, 7},
		{"1 00000-", 2},
		{"", 0},
	}
	for _, tt := range tests {
		if got := Checksum(tt.line); got != tt.want {
			t.Errorf("Checksum(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestSGP4FieldsMatchSlicing(t *testing.T) {
	want := map[string]string{
		"epoch year":                       "25",
		"epoch day":                        "045.18032407",
		"first derivative of mean motion":  ".00016717",
		"second derivative of mean motion": ".00000e+0",
		"bstar":                            ".30099e-3",
		"inclination":                      "51.6412",
		"eccentricity":                     ".0003457",
		"mean motion":                      "15.49874301",
	}
	for _, f := range sgp4Fields(issLine1, issLine2) {
		if w, ok := want[f.name]; ok && f.value != w {
			t.Errorf("%s = %q, want %q", f.name, f.value, w)
		}
	}
	if err := checkSGP4Fields(issLine1, issLine2); err != nil {
		t.Errorf("valid lines rejected: %v", err)
	}
}

func TestParseSkipsUnparseableFields(t *testing.T) {
	spaced := issLine2[:26] + "  03457" + issLine2[33:]
	input := issName + "\n" + issLine1 + "\n" + spaced + "\n" + hstTLE
	entries, err := Parse(strings.NewReader(input), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].NORADID != 20580 {
		t.Errorf("got %+v, want only HST", entries)
	}
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"25001.00000000", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"25001.50000000", time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), true},
		{"57001.00000000", time.Date(1957, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"56366.00000000", time.Date(2056, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"25000.50000000", time.Time{}, false},
		{"2x001.0", time.Time{}, false},
		{"250", time.Time{}, false},
	}
	for _, tt := range tests {
		got, err := parseEpoch(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("parseEpoch(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && !got.Equal(tt.want) {
			t.Errorf("parseEpoch(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
