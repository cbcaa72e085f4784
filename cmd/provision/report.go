package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"git.home.luguber.info/inful/provision/internal/history"
	"git.home.luguber.info/inful/provision/internal/provision"
)

func printSummary(out io.Writer, summary provision.Summary, asJSON bool) error {
	if asJSON {
		data, err := summary.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range summary.Results {
		status := "ok"
		detail := r.Path
		if r.Failed() {
			status = "failed"
			detail = r.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, status, detail)
	}
	return w.Flush()
}

type wireRun struct {
	ID         string   `json:"id"`
	StartedAt  string   `json:"started_at"`
	FinishedAt string   `json:"finished_at"`
	Outcome    string   `json:"outcome"`
	Repos      []string `json:"repos"`
}

func printRunsJSON(out io.Writer, runs []history.Run) error {
	wire := make([]wireRun, 0, len(runs))
	for _, r := range runs {
		wr := wireRun{
			ID:         r.ID,
			StartedAt:  r.StartedAt.Format("2006-01-02 15:04:05"),
			FinishedAt: r.FinishedAt.Format("2006-01-02 15:04:05"),
			Outcome:    r.Outcome,
		}
		for _, repo := range r.Repos {
			wr.Repos = append(wr.Repos, fmt.Sprintf("%s (%s)", repo.Name, repo.Status))
		}
		wire = append(wire, wr)
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func printRunsText(out io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "no recorded runs")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tOUTCOME\tREPOS")
	for _, r := range runs {
		ok, failed := 0, 0
		for _, repo := range r.Repos {
			if repo.Status == "ok" {
				ok++
			} else {
				failed++
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d ok / %d failed\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Outcome, ok, failed)
	}
	_ = w.Flush()
}
