package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/wayfarerhq/wayfarer/internal/chat"
)

// SessionSweepJob drops conversations that have been idle past their TTL.
type SessionSweepJob struct {
	sessions *chat.SessionManager
}

func NewSessionSweepJob(sessions *chat.SessionManager) *SessionSweepJob {
	return &SessionSweepJob{sessions: sessions}
}

func (j *SessionSweepJob) Name() string {
	return "session_sweep"
}

func (j *SessionSweepJob) Run(ctx context.Context) error {
	removed := j.sessions.Sweep()
	if removed > 0 {
		logutil.GetLogger(ctx).Info("idle sessions dropped", zap.Int("count", removed))
	}
	return nil
}
