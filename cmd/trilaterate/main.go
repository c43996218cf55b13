// Command trilaterate estimates the geographic origin of a signal from three
// satellites and the slant distances to it by way of each.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/AshleyKelly/EphemGeolocTracker/internal/config"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/estimate"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/propagation"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/tle"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/transform"
	"github.com/AshleyKelly/EphemGeolocTracker/internal/trilateration"
)

// Exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitDegenerate  = 3
	exitUnavailable = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	sats      string
	distances string
	lat       float64
	lon       float64
	elev      float64
	at        string
	offline   bool
	jsonOut   bool
	cacheFile string
	sourceURL string
	verbose   bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("trilaterate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.sats, "sats", "", "three comma-separated NORAD ids; prompts when empty")
	fs.StringVar(&o.distances, "distances", "5000,6000,7000", "three comma-separated distances, one per satellite")
	fs.Float64Var(&o.lat, "lat", config.DefaultObserverLat, "observer latitude, degrees")
	fs.Float64Var(&o.lon, "lon", config.DefaultObserverLon, "observer longitude, degrees (east positive)")
	fs.Float64Var(&o.elev, "elev", config.DefaultObserverElev, "observer elevation, metres")
	fs.StringVar(&o.at, "time", "", "evaluation time, RFC 3339 (default now)")
	fs.BoolVar(&o.offline, "offline", false, "use the cache file only")
	fs.BoolVar(&o.jsonOut, "json", false, "print the estimate as JSON")
	fs.StringVar(&o.cacheFile, "cache", tle.DefaultCacheFile, "element cache file")
	fs.StringVar(&o.sourceURL, "url", "", "element source URL (default CelesTrak stations)")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	distances, err := parseFloats(o.distances)
	if err != nil {
		fmt.Fprintln(stderr, "ERROR -distances:", err)
		return exitUsage
	}
	at := time.Now()
	if o.at != "" {
		if at, err = time.Parse(time.RFC3339, o.at); err != nil {
			fmt.Fprintln(stderr, "ERROR -time must be RFC 3339:", err)
			return exitUsage
		}
	}

	store := tle.NewStore()
	tleCfg := config.TLEConfig{EnableFetch: !o.offline, SourceURL: o.sourceURL, CacheFile: o.cacheFile}
	source := tleCfg.NewSource(store, logger)

	// With -sats the estimate fetches its own elements; otherwise the
	// listing refreshes once and the estimate reuses that data.
	var sats [3]int
	preferCache := false
	if o.sats != "" {
		if sats, err = parseIDs(o.sats); err != nil {
			fmt.Fprintln(stderr, "ERROR -sats:", err)
			return exitUsage
		}
	} else {
		list, err := source.FetchSatelliteList(ctx)
		if err != nil {
			fmt.Fprintln(stderr, "ERROR loading satellite data:", err)
			return exitCode(err)
		}
		if sats, err = chooseSatellites(stdin, stdout, list); err != nil {
			fmt.Fprintln(stderr, "ERROR:", err)
			return exitUsage
		}
		preferCache = true
	}

	resolver := propagation.NewResolver(store, propagation.ResolverConfig{Workers: 1}, logger)
	est, err := estimate.New(source, resolver, logger).Estimate(ctx, estimate.Request{
		Observer:    transform.NewObserverPosition(o.lat, o.lon, o.elev),
		Time:        at,
		Satellites:  sats,
		Distances:   distances,
		PreferCache: preferCache,
	})
	if err != nil {
		fmt.Fprintln(stderr, "ERROR:", err)
		return exitCode(err)
	}

	if o.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(est); err != nil {
			fmt.Fprintln(stderr, "ERROR:", err)
			return exitError
		}
		return exitOK
	}
	printEstimate(stdout, est)
	return exitOK
}

// exitCode maps an estimate error to the process exit status.
func exitCode(err error) int {
	switch estimate.Outcome(err) {
	case "precondition":
		return exitUsage
	case "degenerate":
		return exitDegenerate
	case "unavailable", "unknown_satellite", "parse", "propagation":
		return exitUnavailable
	default:
		return exitError
	}
}

func parseFloats(s string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("want 3 values, got %d", len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

func parseIDs(s string) ([3]int, error) {
	var out [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("want 3 values, got %d", len(parts))
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

// chooseSatellites lists sats and prompts until three distinct valid
// entries have been picked. Returns their NORAD ids.
func chooseSatellites(in io.Reader, out io.Writer, sats []tle.Satellite) ([3]int, error) {
	var picked [3]int
	if len(sats) < 3 {
		return picked, &trilateration.PreconditionError{Param: "satellites", Reason: fmt.Sprintf("only %d satellites available", len(sats))}
	}

	fmt.Fprintln(out, "Available satellites:")
	for i, s := range sats {
		fmt.Fprintf(out, "%4d. %s (NORAD %d)\n", i+1, s.Name, s.NORADID)
	}

	sc := bufio.NewScanner(in)
	chosen := make(map[int]bool, 3)
	for n := 0; n < 3; {
		fmt.Fprintf(out, "Select satellite %d (1-%d): ", n+1, len(sats))
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return picked, err
			}
			return picked, errors.New("input closed before three satellites were selected")
		}
		idx, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
		switch {
		case err != nil || idx < 1 || idx > len(sats):
			fmt.Fprintln(out, "Invalid selection, try again.")
			continue
		case chosen[idx]:
			fmt.Fprintln(out, "Already selected, pick a different satellite.")
			continue
		}
		chosen[idx] = true
		picked[n] = sats[idx-1].NORADID
		n++
	}
	return picked, nil
}

func printEstimate(w io.Writer, est *estimate.Estimate) {
	fmt.Fprintf(w, "Observer: lat %.4f° lon %.4f° elev %.0f m\n", est.Observer.LatDeg, est.Observer.LonDeg, est.Observer.AltM)
	fmt.Fprintf(w, "Time:     %s\n\n", est.Time.Format(time.RFC3339))
	for i, v := range est.Vectors {
		fmt.Fprintf(w, "  %-24s NORAD %-6d RA %9.4f° Dec %8.4f° range %9.1f km  d=%g\n",
			v.Name, v.NORADID, deg(v.RA), deg(v.Dec), v.RangeKm, est.Distances[i])
	}
	fmt.Fprintf(w, "\nSolution x=%.6f y=%.6f\n", est.Result.X, est.Result.Y)
	fmt.Fprintf(w, "Estimated latitude:  %.6f°\n", est.Result.Latitude)
	fmt.Fprintf(w, "Estimated longitude: %.6f°\n", est.Result.Longitude)
	fmt.Fprintf(w, "Local sidereal time: %.6f°\n", deg(est.SiderealTime))
	fmt.Fprintf(w, "Sidereal longitude:  %.6f°\n", est.SiderealLongitude)
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }
