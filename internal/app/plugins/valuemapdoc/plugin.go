// Package valuemapdoc is the value-map content tool plugin: entry
// authoring, per-user summaries, and the document tools it links to.
package valuemapdoc

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lmshub/toolhub/internal/app/registry"
)

// Name is the subplugin identifier used for cohort restrictions.
const Name = "valuemapdoc"

// EntryCounter provides the per-owner entry counts shown on the
// dashboard. Satisfied by *entries.Store.
type EntryCounter interface {
	CountByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error)
	CountByOwnerAndStatus(ctx context.Context, ownerID primitive.ObjectID, status string) (int64, error)
}

type plugin struct {
	counts EntryCounter
	log    *zap.Logger
}

// New returns a registry constructor for the value-map plugin.
func New(counts EntryCounter, log *zap.Logger) registry.Constructor {
	if log == nil {
		log = zap.NewNop()
	}
	return func() registry.Plugin {
		return &plugin{counts: counts, log: log}
	}
}

func (p *plugin) Name() string { return Name }

func (p *plugin) Info() registry.Info {
	return registry.Info{
		Name:        Name,
		Title:       "Value Map Documents",
		Description: "Value mapping and document generation tools",
		Version:     "1.0.0",
	}
}

// HasAccess has no requirements beyond the cohort gate; per-entry
// permissions are enforced where entries are read.
func (p *plugin) HasAccess(ctx context.Context, userID primitive.ObjectID) bool {
	return true
}

func (p *plugin) DashboardBlocks(ctx context.Context, userID primitive.ObjectID) []registry.Block {
	total, err := p.counts.CountByOwner(ctx, userID)
	if err != nil {
		p.log.Warn("value map summary unavailable", zap.Error(err))
		return nil
	}
	active, err := p.counts.CountByOwnerAndStatus(ctx, userID, "active")
	if err != nil {
		p.log.Warn("value map summary unavailable", zap.Error(err))
		active = 0
	}
	return []registry.Block{
		{
			Plugin: Name,
			Key:    "valuemap_summary",
			Title:  "Value Map Summary",
			Weight: 10,
			Data: map[string]any{
				"entries_count": total,
				"active_count":  active,
			},
		},
	}
}

func (p *plugin) Tools(ctx context.Context, userID primitive.ObjectID) []registry.Tool {
	return []registry.Tool{
		{
			Plugin:   Name,
			Key:      "my_content",
			Title:    "My Content",
			URL:      "/entries",
			Icon:     "file-text",
			Category: "sales",
		},
		{
			Plugin:   Name,
			Key:      "my_valuemaps",
			Title:    "My Value Maps",
			URL:      "/entries?status=active",
			Icon:     "sitemap",
			Category: "sales",
		},
	}
}
