package provision

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/provision/internal/history"
)

// Summary is the externally observable result artifact of a run.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string // success | failed
	Results    []RunResult
	SearchPath []string
}

type repoSummary struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type wireSummary struct {
	RunID      string        `json:"run_id"`
	Outcome    string        `json:"outcome"`
	Repos      []repoSummary `json:"repos"`
	SearchPath []string      `json:"search_path,omitempty"`
}

// JSON renders the ordered per-repository results for process output.
func (s Summary) JSON() ([]byte, error) {
	w := wireSummary{
		RunID:      s.RunID,
		Outcome:    s.Outcome,
		Repos:      make([]repoSummary, 0, len(s.Results)),
		SearchPath: s.SearchPath,
	}
	for _, r := range s.Results {
		rs := repoSummary{Name: r.Name, Path: r.Path, Status: "ok"}
		if r.Failed() {
			rs.Status = "failed"
			rs.Error = r.Err.Error()
		}
		w.Repos = append(w.Repos, rs)
	}
	return json.MarshalIndent(w, "", "  ")
}

func (s Summary) historyRun() history.Run {
	run := history.Run{
		ID:         s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Outcome:    s.Outcome,
		Repos:      make([]history.RepoRecord, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		rec := history.RepoRecord{Name: r.Name, Path: r.Path, Status: "ok"}
		if r.Failed() {
			rec.Status = "failed"
			rec.Error = r.Err.Error()
		}
		run.Repos = append(run.Repos, rec)
	}
	return run
}
