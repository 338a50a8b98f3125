// Package commands implements the lwm2m-log CLI commands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/pkg/log"
)

// RunView writes every event matching filter in human-readable form.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes one event: a header line, then indented details.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.Message != nil:
		typeLabel = event.Message.Type.String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [%s] %-3s %s %s %s\n", ts, shortenID(event.SessionID), event.Direction, event.Layer, typeLabel, event.Path)
	if event.Endpoint != "" {
		fmt.Fprintf(w, "  Endpoint: %s\n", event.Endpoint)
	}

	switch {
	case event.Frame != nil:
		fmt.Fprintf(w, "  MessageID: %d  Size: %d bytes\n", event.Frame.MessageID, event.Frame.Size)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		sc := event.StateChange
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s: %s -> %s\n", sc.Entity, sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  %s: -> %s\n", sc.Entity, sc.NewState)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Error != nil:
		fmt.Fprintf(w, "  %s: %s\n", event.Error.Context, event.Error.Message)
	}
	fmt.Fprintln(w)
}

func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	if msg.Operation != nil {
		fmt.Fprintf(w, "  Operation: %s\n", msg.Operation)
	}
	if msg.Kind != nil {
		fmt.Fprintf(w, "  Kind: %s\n", msg.Kind)
	}
	if msg.Code != nil {
		fmt.Fprintf(w, "  Code: %s %s\n", msg.Code, msg.Code.Name())
	}
	if msg.Elapsed != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*msg.Elapsed))
	}
	if msg.Payload != nil {
		if data, err := json.Marshal(msg.Payload); err == nil {
			fmt.Fprintf(w, "  Payload: %s\n", data)
		}
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// ParseLayerFlag parses a -layer value.
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "engine":
		return log.LayerEngine, nil
	case "dispatch":
		return log.LayerDispatch, nil
	case "routing":
		return log.LayerRouting, nil
	}
	return 0, fmt.Errorf("invalid layer %q (want engine, dispatch or routing)", s)
}

// ParseDirectionFlag parses a -direction value.
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	}
	return 0, fmt.Errorf("invalid direction %q (want in or out)", s)
}

// ParseCategoryFlag parses a -category value.
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	}
	return 0, fmt.Errorf("invalid category %q (want message, state or error)", s)
}
