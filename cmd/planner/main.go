// Command planner loads an asteroid catalog and prints a transfer route
// without running a server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/signalsfoundry/adalia-navigator/core"
	"github.com/signalsfoundry/adalia-navigator/internal/presentation"
	"github.com/signalsfoundry/adalia-navigator/kb"
	"github.com/signalsfoundry/adalia-navigator/model"
	"github.com/signalsfoundry/adalia-navigator/timectrl"
)

type options struct {
	catalogPath     string
	start           int
	targets         []int
	day             *float64
	speed           float64
	exhaustiveLimit int
	freeze          bool
	track           int
}

func main() {
	catalogPath := flag.String("catalog", "asteroids.json", "Path to the asteroid catalog JSON")
	start := flag.Int("start", 1, "ID of the departure body")
	targets := flag.String("targets", "", "Comma-separated target body IDs")
	day := flag.Float64("day", -1, "Departure Adalia day (negative uses the current day)")
	speed := flag.Float64("speed", core.DefaultTransferSpeed, "Transfer speed in AU per Adalia day")
	limit := flag.Int("exhaustive-limit", core.DefaultExhaustiveLimit, "Largest target count searched exhaustively")
	freeze := flag.Bool("freeze", false, "Plan with every body frozen at its departure-day position")
	track := flag.Int("track", 0, "Print each visited body's position at this many evenly spaced days along the route")
	flag.Parse()

	ids, err := parseIDs(*targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -targets: %v\n", err)
		os.Exit(2)
	}
	opts := options{
		catalogPath:     *catalogPath,
		start:           *start,
		targets:         ids,
		speed:           *speed,
		exhaustiveLimit: *limit,
		freeze:          *freeze,
		track:           *track,
	}
	if *day >= 0 {
		opts.day = day
	}

	if err := run(context.Background(), os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "planner: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, opts options) error {
	catalog, err := kb.LoadCatalog(ctx, kb.FileSource{Path: opts.catalogPath})
	if err != nil {
		return err
	}
	start, err := catalog.Lookup(opts.start)
	if err != nil {
		return err
	}
	targets, err := catalog.LookupMany(opts.targets)
	if err != nil {
		return err
	}

	prop := core.NewPropagator(core.WithClock(timectrl.NewWallClock(timectrl.DefaultMapping())))
	departDay := prop.Now()
	if opts.day != nil {
		departDay = *opts.day
	}

	cost, err := core.NewEuclideanCostModel(opts.speed)
	if err != nil {
		return err
	}

	targetElements := make([]model.OrbitalElements, 0, len(targets))
	for _, b := range targets {
		targetElements = append(targetElements, b.Elements)
	}

	var motion core.MotionModel = prop
	if opts.freeze {
		all := append([]model.OrbitalElements{start.Elements}, targetElements...)
		frozen, err := core.FreezeAt(prop, all, departDay)
		if err != nil && !core.IsPrecisionWarning(err) {
			return err
		}
		motion = frozen
	}

	planner := core.NewPlanner(motion, cost, core.WithExhaustiveLimit(opts.exhaustiveLimit))
	route, err := planner.Plan(start.Elements, targetElements, departDay)
	if err != nil {
		if !core.IsPrecisionWarning(err) {
			return err
		}
		fmt.Fprintf(w, "warning: %v\n", err)
	}

	names := make(map[int]string, len(targets)+1)
	names[start.ID] = presentation.Name(start)
	for _, b := range targets {
		names[b.ID] = presentation.Name(b)
	}

	fmt.Fprintf(w, "Route from %s at day %.3f (%s, %d targets)\n",
		names[start.ID], departDay, route.Strategy, len(targets))
	for i, leg := range route.Legs {
		fmt.Fprintf(w, "  %2d. %-20s -> %-20s depart %10.3f  arrive %10.3f  cost %8.3f\n",
			i+1, names[leg.Origin], names[leg.Destination], leg.Departure, leg.Arrival, leg.Cost)
	}
	fmt.Fprintf(w, "Total cost %.3f, arrival day %.3f\n", route.TotalCost, route.Arrival())

	if opts.track > 0 && len(route.Legs) > 0 {
		return printTrack(w, prop, catalog, route, opts.track)
	}
	return nil
}

// printTrack samples each visited body's position evenly between the first
// departure and the final arrival.
func printTrack(w io.Writer, prop *core.Propagator, catalog *kb.Catalog, route model.Route, steps int) error {
	from, to := route.Legs[0].Departure, route.Arrival()
	fmt.Fprintln(w, "Track:")
	for _, id := range route.Order() {
		el, err := catalog.Elements(id)
		if err != nil {
			return err
		}
		for k := 0; k <= steps; k++ {
			day := from + (to-from)*float64(k)/float64(steps)
			pos, err := prop.PositionAt(el, day)
			if err != nil && !core.IsPrecisionWarning(err) {
				return err
			}
			fmt.Fprintf(w, "  body %-6d day %10.3f  (%.4f, %.4f, %.4f)\n", id, day, pos.X, pos.Y, pos.Z)
		}
	}
	return nil
}

func parseIDs(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errors.New("ids must be integers separated by commas")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
