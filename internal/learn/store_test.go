package learn

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"surveynerd/internal/survey"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

const longQuestion = "Which of the following best describes your current employment status?"

func TestRecordSuccess_ShortKeys(t *testing.T) {
	s := newTestStore(t)

	t.Run("key shorter than minimum is not memorized", func(t *testing.T) {
		require.NoError(t, s.RecordSuccess("Age?", "45", survey.FamilyText, 0.9))
		assert.Equal(t, 0, s.ResponseCount())
	})

	t.Run("key at the minimum is memorized", func(t *testing.T) {
		q := "aaaaaaaaaaaaaaaaaaaa" // exactly MinKeyLength
		require.Len(t, q, survey.MinKeyLength)
		require.NoError(t, s.RecordSuccess(q, "yes", survey.FamilyRadio, 0.9))
		assert.Equal(t, 1, s.ResponseCount())
	})
}

func TestRecordSuccess_GenericDefaults(t *testing.T) {
	s := newTestStore(t)

	for _, answer := range []string{"None of the above", "Prefer not to say", "Other"} {
		require.NoError(t, s.RecordSuccess(longQuestion, answer, survey.FamilyRadio, 0.9))
	}
	assert.Equal(t, 0, s.ResponseCount(), "generic defaults must never be memorized")

	require.NoError(t, s.RecordSuccess(longQuestion, "Employed full-time", survey.FamilyRadio, 0.9))
	assert.Equal(t, 1, s.ResponseCount())
}

func TestGetExact(t *testing.T) {
	s := newTestStore(t)
	key := survey.NormalizeKey(longQuestion)

	t.Run("miss on empty store", func(t *testing.T) {
		_, ok := s.GetExact(key, survey.FamilyRadio)
		assert.False(t, ok)
	})

	require.NoError(t, s.RecordSuccess(longQuestion, "Employed full-time", survey.FamilyRadio, 0.9))

	t.Run("hit with matching family", func(t *testing.T) {
		entry, ok := s.GetExact(key, survey.FamilyRadio)
		require.True(t, ok)
		assert.Equal(t, "Employed full-time", entry.Answer)
	})

	t.Run("miss with incompatible family", func(t *testing.T) {
		_, ok := s.GetExact(key, survey.FamilySlider)
		assert.False(t, ok)
	})

	t.Run("unknown family is a wildcard", func(t *testing.T) {
		_, ok := s.GetExact(key, survey.FamilyUnknown)
		assert.True(t, ok)
	})

	t.Run("below-threshold confidence is not served", func(t *testing.T) {
		low := "What was the exact street name of your childhood home?"
		require.NoError(t, s.RecordSuccess(low, "Acacia Avenue", survey.FamilyText, 0.5))
		_, ok := s.GetExact(survey.NormalizeKey(low), survey.FamilyText)
		assert.False(t, ok)
	})
}

func TestReinforce_MonotoneAndCapped(t *testing.T) {
	s := newTestStore(t)
	key := survey.NormalizeKey(longQuestion)
	require.NoError(t, s.RecordSuccess(longQuestion, "Employed full-time", survey.FamilyRadio, 0.9))

	prev := s.Responses()[key].Confidence
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Reinforce(key))
		cur := s.Responses()[key].Confidence
		assert.GreaterOrEqual(t, cur, prev, "confidence must never decrease")
		assert.LessOrEqual(t, cur, 0.99, "confidence must stay capped below 1.0")
		prev = cur
	}
	assert.InDelta(t, 0.99, prev, 1e-9)
	assert.Equal(t, 11, s.Responses()[key].SuccessCount)

	t.Run("unknown key errors", func(t *testing.T) {
		assert.Error(t, s.Reinforce("never recorded"))
	})
}

func TestResponsesDocument_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.RecordSuccess(longQuestion, "Employed full-time", survey.FamilyRadio, 0.9))
	require.NoError(t, s.RecordSuccess("How many people live in your household including you?", "3", survey.FamilyText, 0.85))

	reopened, err := Open(dir, zap.NewNop())
	require.NoError(t, err)

	if diff := cmp.Diff(s.Responses(), reopened.Responses()); diff != "" {
		t.Errorf("responses changed across reopen (-before +after):\n%s", diff)
	}
}

func TestResponsesDocument_Shape(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.RecordSuccess(longQuestion, "Employed full-time", survey.FamilyRadio, 0.9))

	data, err := os.ReadFile(filepath.Join(dir, "learned_responses.json"))
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "responses")
	assert.Contains(t, doc, "metadata")
}

func TestOpen_SeedsDefaultPatterns(t *testing.T) {
	s := newTestStore(t)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.NotEmpty(t, s.patterns)
	assert.Equal(t, "age", s.categoryOrder[0])
}

func TestOpen_CategoryOrderSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	first, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	seeded := append([]string(nil), first.categoryOrder...)

	second, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, seeded, second.categoryOrder, "scan order must not change between runs")
	assert.Equal(t, "age", second.categoryOrder[0])
}
