package storage

import (
	"context"

	"phylosim/internal/model"
)

// Store persists completed simulation runs and their artifacts: the run
// record, per-node mutation histories, the per-site summary, and leaf
// sequences when collected.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	SaveMutations(ctx context.Context, runID string, nodes []model.NodeMutations) error
	GetMutations(ctx context.Context, runID string) ([]model.NodeMutations, bool, error)
	SaveSiteInfo(ctx context.Context, runID string, sites []model.SiteInfo) error
	GetSiteInfo(ctx context.Context, runID string) ([]model.SiteInfo, bool, error)
	SaveLeafSequences(ctx context.Context, runID string, leaves []model.LeafSequence) error
	GetLeafSequences(ctx context.Context, runID string) ([]model.LeafSequence, bool, error)
}
