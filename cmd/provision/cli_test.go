package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"git.home.luguber.info/inful/provision/internal/history"
	"git.home.luguber.info/inful/provision/internal/provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintSummaryText(t *testing.T) {
	summary := provision.Summary{
		RunID:   "r1",
		Outcome: "failed",
		Results: []provision.RunResult{
			{Name: "core-lib", Path: "/cache/core-lib"},
			{Name: "broken", Err: errors.New("clone failed")},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, summary, false))

	out := buf.String()
	assert.Contains(t, out, "core-lib")
	assert.Contains(t, out, "/cache/core-lib")
	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "clone failed")
}

func TestPrintSummaryJSON(t *testing.T) {
	summary := provision.Summary{
		RunID:   "r1",
		Outcome: "success",
		Results: []provision.RunResult{{Name: "core-lib", Path: "/cache/core-lib"}},
	}

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, summary, true))
	assert.Contains(t, buf.String(), `"run_id": "r1"`)
	assert.Contains(t, buf.String(), `"outcome": "success"`)
}

func TestPrintRunsText(t *testing.T) {
	runs := []history.Run{
		{
			ID:        "run-1",
			StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Outcome:   "failed",
			Repos: []history.RepoRecord{
				{Name: "a", Status: "ok"},
				{Name: "b", Status: "failed"},
			},
		},
	}

	var buf bytes.Buffer
	printRunsText(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "1 ok / 1 failed")
}

func TestPrintRunsTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	printRunsText(&buf, nil)
	assert.Contains(t, buf.String(), "no recorded runs")
}

func TestPrintRunsJSON(t *testing.T) {
	runs := []history.Run{
		{
			ID:        "run-1",
			StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Outcome:   "success",
			Repos:     []history.RepoRecord{{Name: "a", Status: "ok"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printRunsJSON(&buf, runs))
	assert.Contains(t, buf.String(), `"outcome": "success"`)
	assert.Contains(t, buf.String(), "a (ok)")
}
