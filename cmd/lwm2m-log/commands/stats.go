package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/log"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/wire"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Endpoints         map[string]*EndpointStats
	Errors            int
	Start, End        time.Time
}

// EndpointStats holds statistics for one device endpoint.
type EndpointStats struct {
	Events    int
	Requests  int
	Failures  int
	Responses map[wire.Code]int
	Elapsed   time.Duration
}

// AverageElapsed returns the mean request round trip.
func (e *EndpointStats) AverageElapsed() time.Duration {
	n := 0
	for _, c := range e.Responses {
		n += c
	}
	if n == 0 {
		return 0
	}
	return e.Elapsed / time.Duration(n)
}

// ComputeStats aggregates every event in the capture file.
func ComputeStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Endpoints:         make(map[string]*EndpointStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++
		if stats.Start.IsZero() || event.Timestamp.Before(stats.Start) {
			stats.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.End) {
			stats.End = event.Timestamp
		}

		ep, ok := stats.Endpoints[event.Endpoint]
		if !ok {
			ep = &EndpointStats{Responses: make(map[wire.Code]int)}
			stats.Endpoints[event.Endpoint] = ep
		}
		ep.Events++

		switch {
		case event.Error != nil:
			stats.Errors++
			ep.Failures++
		case event.Message != nil && event.Message.Type == log.MessageTypeRequest:
			ep.Requests++
		case event.Message != nil && event.Message.Code != nil:
			ep.Responses[*event.Message.Code]++
			if !event.Message.Code.IsSuccess() {
				ep.Failures++
			}
			if event.Message.Elapsed != nil {
				ep.Elapsed += *event.Message.Elapsed
			}
		}
	}
}

// RunStats prints the statistics of the capture file.
func RunStats(path string, w io.Writer) error {
	stats, err := ComputeStats(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Events:   %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Errors:   %d\n", stats.Errors)
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Duration: %s (%s to %s)\n", stats.End.Sub(stats.Start).Round(time.Millisecond),
			stats.Start.UTC().Format(time.RFC3339), stats.End.UTC().Format(time.RFC3339))
	}

	fmt.Fprintln(w, "\nBy layer:")
	for _, l := range []log.Layer{log.LayerEngine, log.LayerDispatch, log.LayerRouting} {
		fmt.Fprintf(w, "  %-10s %d\n", l, stats.EventsByLayer[l])
	}

	endpoints := make([]string, 0, len(stats.Endpoints))
	for name := range stats.Endpoints {
		endpoints = append(endpoints, name)
	}
	sort.Strings(endpoints)

	fmt.Fprintln(w, "\nBy endpoint:")
	for _, name := range endpoints {
		ep := stats.Endpoints[name]
		label := name
		if label == "" {
			label = "(none)"
		}
		fmt.Fprintf(w, "  %s: %d events, %d requests, %d failures, avg %s\n",
			label, ep.Events, ep.Requests, ep.Failures, formatDuration(ep.AverageElapsed()))
	}
	return nil
}
