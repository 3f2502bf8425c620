package traverse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"surveynerd/internal/browser"
	"surveynerd/internal/perception"
	"surveynerd/internal/survey"
)

// PageObserver snapshots the live page, transcribes it, and classifies the
// transcript. Oracle failure degrades into the safe default classification.
type PageObserver struct {
	session    *browser.Session
	oracle     perception.TranscriptionOracle
	classifier *perception.Classifier
	logger     *zap.Logger

	// SnapshotDir, when set, keeps every captured screenshot for audit.
	SnapshotDir string
}

// NewPageObserver wires an observer over the live session.
func NewPageObserver(session *browser.Session, oracle perception.TranscriptionOracle,
	classifier *perception.Classifier, logger *zap.Logger) *PageObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageObserver{
		session:    session,
		oracle:     oracle,
		classifier: classifier,
		logger:     logger,
	}
}

// Observe implements Observer.
func (o *PageObserver) Observe(ctx context.Context) (survey.PageClassification, *perception.Transcript, error) {
	if err := o.session.Settle(ctx); err != nil {
		// A page that never settles is still worth transcribing; the
		// stall converts to a soft failure downstream if the snapshot is
		// useless.
		o.logger.Debug("Page settle timed out before snapshot", zap.Error(err))
	}

	snapshot, err := o.session.Screenshot(ctx)
	if err != nil {
		return survey.Degraded(), nil, fmt.Errorf("%w: screenshot: %v", survey.ErrClassificationDegraded, err)
	}
	o.keepSnapshot(snapshot)

	transcript, err := o.oracle.Transcribe(ctx, snapshot)
	if err != nil {
		return survey.Degraded(), nil, fmt.Errorf("%w: transcription: %v", survey.ErrClassificationDegraded, err)
	}

	return o.classifier.Classify(transcript), transcript, nil
}

func (o *PageObserver) keepSnapshot(snapshot []byte) {
	if o.SnapshotDir == "" {
		return
	}
	if err := os.MkdirAll(o.SnapshotDir, 0o755); err != nil {
		o.logger.Warn("Snapshot dir unavailable", zap.Error(err))
		return
	}
	name := fmt.Sprintf("page_%d.png", time.Now().UnixMilli())
	if err := os.WriteFile(filepath.Join(o.SnapshotDir, name), snapshot, 0o644); err != nil {
		o.logger.Warn("Snapshot write failed", zap.Error(err))
	}
}
