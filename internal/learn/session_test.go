package learn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveynerd/internal/survey"
)

func TestRecordManual_FlushesImmediately(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, zap.NewNop())
	require.NoError(t, err)

	log := NewSessionLog("sess-1")
	require.NoError(t, s.RecordManual(log, "Which brand of coffee did you last purchase?", "Moccona", survey.FamilyRadio))

	_, err = os.Stat(filepath.Join(dir, "sessions", "sess-1.json"))
	assert.NoError(t, err, "session log must hit disk on every manual capture")
	assert.Len(t, log.Manual, 1)
}

func TestRecordManual_NeverEntersExactStore(t *testing.T) {
	s := newTestStore(t)
	log := NewSessionLog("sess-1")

	require.NoError(t, s.RecordManual(log, longQuestion, "Employed full-time", survey.FamilyRadio))
	assert.Equal(t, 0, s.ResponseCount(), "manual answers are mined, not memorized")
}

func TestFinalizeSession_MinesRepeatedAnswers(t *testing.T) {
	s := newTestStore(t)
	log := NewSessionLog("sess-2")

	questions := []string{
		"How often do you shop at this supermarket?",
		"How often do you visit this website?",
		"How often do you use this service?",
	}
	for _, q := range questions {
		require.NoError(t, s.RecordManual(log, q, "Weekly", survey.FamilyRadio))
	}
	require.NoError(t, s.RecordManual(log, "What brand do you prefer?", "Moccona", survey.FamilyRadio))
	require.NoError(t, s.RecordManual(log, "What brand did you buy last?", "Moccona", survey.FamilyRadio))

	fresh, err := s.FinalizeSession(log)
	require.NoError(t, err)

	candidates := s.Candidates()
	require.Len(t, candidates, 1, "only answers repeated at least three times are mined")
	assert.Equal(t, "Weekly", candidates[0].Answer)
	assert.Equal(t, 3, candidates[0].Count)
	assert.Equal(t, "sess-2", candidates[0].SessionID)

	assert.Empty(t, fresh.Manual, "finalize returns a reset log")
	assert.Empty(t, fresh.Automated)
}

func TestFinalizeSession_CandidatesSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, zap.NewNop())
	require.NoError(t, err)

	log := NewSessionLog("sess-3")
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordManual(log, "How often do you exercise each week on average?", "Twice", survey.FamilyText))
	}
	_, err = s.FinalizeSession(log)
	require.NoError(t, err)

	reopened, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, reopened.Candidates(), 1)
}
