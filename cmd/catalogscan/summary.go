package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"catalogscan/internal/logging"
	"catalogscan/internal/pipeline"
)

// reportSummary prints a table for an interactive terminal and a single log
// line otherwise.
func reportSummary(out io.Writer, logger *slog.Logger, s pipeline.Summary) {
	if isTerminal(out) {
		fmt.Fprintln(out, renderSummary(s))
		return
	}
	logger.Info("run summary",
		logging.String(logging.FieldRunID, s.RunID),
		logging.Int("images", s.Total),
		logging.Int("skipped", s.Skipped),
		logging.Int("committed", s.Done),
		logging.Int("placeholders", s.Placeholders),
		logging.Int("review", s.Review),
		logging.Int("failed", len(s.Failed)),
		logging.Int("deferred", s.Deferred),
		logging.Bool("interrupted", s.Interrupted),
		logging.Int("records", s.Records),
		logging.Duration("elapsed", s.Elapsed),
	)
}

func renderSummary(s pipeline.Summary) string {
	if s.SourceCreated {
		return "Source directory was missing and has been created. Add images and run again."
	}
	list := newListing("Run "+s.RunID, "").alignRight(2)
	list.add("Images found", strconv.Itoa(s.Total))
	list.add("Already processed", strconv.Itoa(s.Skipped))
	list.add("Committed", strconv.Itoa(s.Done))
	list.add("  placeholders", strconv.Itoa(s.Placeholders))
	list.add("  for review", strconv.Itoa(s.Review))
	list.add("Failed", strconv.Itoa(len(s.Failed)))
	if s.Deferred > 0 {
		list.add("Deferred by limit", strconv.Itoa(s.Deferred))
	}
	list.add("Records in store", strconv.Itoa(s.Records))
	list.add("Elapsed", s.Elapsed.Round(time.Second).String())

	out := list.String()
	if s.Interrupted {
		out += "\nRun interrupted; remaining images stay pending."
	}
	if len(s.Failed) > 0 {
		failures := newListing("Image", "Failed in", "Error")
		for _, f := range s.Failed {
			failures.add(f.Item, string(f.State), errorText(f.Err))
		}
		out += "\n" + failures.String()
	}
	return out
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
