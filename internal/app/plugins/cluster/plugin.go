// Package cluster is the cluster-manager tool plugin: strategic
// campaign workspaces built on shared entry access.
package cluster

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lmshub/toolhub/internal/app/registry"
)

// Name is the subplugin identifier used for cohort restrictions.
const Name = "cluster"

// GrantCounter counts the live shared-access grants held by a user.
// Satisfied by *grants.Store.
type GrantCounter interface {
	CountForUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type plugin struct {
	grants GrantCounter
	log    *zap.Logger
}

// New returns a registry constructor for the cluster plugin.
func New(grants GrantCounter, log *zap.Logger) registry.Constructor {
	if log == nil {
		log = zap.NewNop()
	}
	return func() registry.Plugin {
		return &plugin{grants: grants, log: log}
	}
}

func (p *plugin) Name() string { return Name }

func (p *plugin) Info() registry.Info {
	return registry.Info{
		Name:        Name,
		Title:       "Sales Clusters",
		Description: "Strategic sales campaign management",
		Version:     "1.0.0",
	}
}

// HasAccess has no requirements beyond the cohort gate. The gate is
// what restricts this plugin to the sales cohorts in practice.
func (p *plugin) HasAccess(ctx context.Context, userID primitive.ObjectID) bool {
	return true
}

func (p *plugin) DashboardBlocks(ctx context.Context, userID primitive.ObjectID) []registry.Block {
	shared, err := p.grants.CountForUser(ctx, userID)
	if err != nil {
		p.log.Warn("cluster summary unavailable", zap.Error(err))
		return nil
	}
	return []registry.Block{
		{
			Plugin: Name,
			Key:    "cluster_summary",
			Title:  "My Sales Clusters",
			Weight: 15,
			Data: map[string]any{
				"shared_with_me": shared,
			},
		},
	}
}

func (p *plugin) Tools(ctx context.Context, userID primitive.ObjectID) []registry.Tool {
	return []registry.Tool{
		{
			Plugin:   Name,
			Key:      "cluster_management",
			Title:    "Cluster Management",
			URL:      "/sharing/effective",
			Icon:     "bullseye",
			Category: "sales_war_room",
		},
		{
			Plugin:   Name,
			Key:      "shared_entries",
			Title:    "Shared Entries",
			URL:      "/entries?shared=1",
			Icon:     "comments",
			Category: "sales_war_room",
		},
	}
}
