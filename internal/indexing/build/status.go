package build

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/observability"
	"github.com/yungbote/docindex/internal/pkg/dbctx"
)

// Status loads a build. A running build whose heartbeat is older than the
// configured timeout is finalized as failed before it is returned.
func (o *Orchestrator) Status(ctx context.Context, buildID string) (*index.BuildStatus, error) {
	dbc := dbctx.Context{Ctx: ctx}
	st, err := o.deps.Builds.Get(dbc, buildID)
	if err != nil {
		return nil, err
	}
	if st.Status != index.BuildRunning {
		return st, nil
	}
	now := o.deps.Now()
	if now.Sub(st.HeartbeatAt) <= o.cfg.HeartbeatTimeout {
		return st, nil
	}

	st.Status = index.BuildFailed
	st.Errors = append(st.Errors, fmt.Sprintf("build abandoned: no heartbeat since %s", st.HeartbeatAt.UTC().Format(time.RFC3339)))
	st.FinishedAt = &now
	if err := o.deps.Builds.Save(dbc, st); err != nil {
		return nil, fmt.Errorf("finalize abandoned build %s: %w", buildID, err)
	}
	o.log.Warn("build finalized as abandoned", "build_id", buildID, "heartbeat_at", st.HeartbeatAt)
	observability.Current().ObserveBuild(index.BuildFailed, now.Sub(st.StartedAt))
	return st, nil
}

func (o *Orchestrator) Recent(ctx context.Context, limit int) ([]*index.BuildStatus, error) {
	return o.deps.Builds.ListRecent(dbctx.Context{Ctx: ctx}, limit)
}
