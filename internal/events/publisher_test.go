package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(Event{Type: TypeRunStarted, RunID: "r1"}))
	p.Close()
}

func TestEventJSONShape(t *testing.T) {
	e := Event{
		Type:      TypeRepoProvisioned,
		RunID:     "r1",
		Repo:      "a",
		Path:      "/repos/a",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "repo.provisioned", decoded["type"])
	assert.Equal(t, "a", decoded["repo"])
	assert.NotContains(t, decoded, "error", "empty error must be omitted")
}
