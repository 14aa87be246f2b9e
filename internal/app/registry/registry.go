// Package registry holds the statically compiled set of tool plugins
// and the process-wide cache of their instances.
//
// Plugins are registered as constructors at startup; there is no
// filesystem scanning or runtime discovery. The constructed instance
// list is cached and rebuilt only on Invalidate, so concurrent readers
// may observe a stale-but-consistent snapshot between invalidations.
// Plugin enablement changes are rare administrative events, so the
// window is acceptable.
package registry

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Plugin is the contract every tool plugin implements: an access
// check, a dashboard summary, a tool listing, and metadata.
type Plugin interface {
	// Name is the subplugin identifier used for cohort gating.
	Name() string

	// HasAccess is the plugin's own access check, evaluated after the
	// cohort gate. Plugins without extra requirements return true.
	HasAccess(ctx context.Context, userID primitive.ObjectID) bool

	// DashboardBlocks returns the plugin's dashboard summary blocks.
	DashboardBlocks(ctx context.Context, userID primitive.ObjectID) []Block

	// Tools returns the tools the plugin contributes.
	Tools(ctx context.Context, userID primitive.ObjectID) []Tool

	// Info returns static plugin metadata.
	Info() Info
}

// Info is static plugin metadata.
type Info struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Block is one dashboard summary block. Blocks across plugins are
// ordered by ascending weight.
type Block struct {
	Plugin string         `json:"plugin"`
	Key    string         `json:"key"`
	Title  string         `json:"title"`
	Weight int            `json:"weight"`
	Data   map[string]any `json:"data,omitempty"`
}

// Tool is one tool link contributed by a plugin, grouped by category
// for display.
type Tool struct {
	Plugin   string `json:"plugin"`
	Key      string `json:"key"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Icon     string `json:"icon,omitempty"`
	Category string `json:"category"`
}

// Constructor builds one plugin instance.
type Constructor func() Plugin

// FeatureGate is the subplugin-level gate consulted per user.
// Satisfied by *cohortgate.Gate.
type FeatureGate interface {
	Allowed(ctx context.Context, subplugin string, userID primitive.ObjectID) bool
}

// Registry caches constructed plugins and answers per-user queries.
type Registry struct {
	gate         FeatureGate
	constructors []Constructor
	log          *zap.Logger

	mu      sync.RWMutex
	plugins []Plugin // nil until first build or after Invalidate
}

// New constructs a Registry over the given constructors.
func New(gate FeatureGate, log *zap.Logger, constructors ...Constructor) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{gate: gate, constructors: constructors, log: log}
}

// Plugins returns the cached instance snapshot, building it first if
// needed. The returned slice must not be mutated.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	if r.plugins != nil {
		defer r.mu.RUnlock()
		return r.plugins
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.plugins == nil {
		r.plugins = r.build()
	}
	return r.plugins
}

// Subplugins returns the names of all registered plugins, gated or not.
func (r *Registry) Subplugins() []string {
	plugins := r.Plugins()
	names := make([]string, 0, len(plugins))
	for _, p := range plugins {
		names = append(names, p.Name())
	}
	return names
}

// PluginsFor returns the plugins the user may use: those that pass the
// cohort gate and their own access check.
func (r *Registry) PluginsFor(ctx context.Context, userID primitive.ObjectID) []Plugin {
	var out []Plugin
	for _, p := range r.Plugins() {
		if !r.gate.Allowed(ctx, p.Name(), userID) {
			continue
		}
		if !p.HasAccess(ctx, userID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DashboardBlocks collects blocks from the user's plugins, sorted by
// ascending weight; ties keep plugin registration order.
func (r *Registry) DashboardBlocks(ctx context.Context, userID primitive.ObjectID) []Block {
	var blocks []Block
	for _, p := range r.PluginsFor(ctx, userID) {
		blocks = append(blocks, p.DashboardBlocks(ctx, userID)...)
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].Weight < blocks[j].Weight
	})
	return blocks
}

// Tools collects the user's tools grouped by category.
func (r *Registry) Tools(ctx context.Context, userID primitive.ObjectID) map[string][]Tool {
	out := make(map[string][]Tool)
	for _, p := range r.PluginsFor(ctx, userID) {
		for _, tool := range p.Tools(ctx, userID) {
			category := tool.Category
			if category == "" {
				category = "general"
			}
			out[category] = append(out[category], tool)
		}
	}
	return out
}

// Invalidate drops the cached plugin set. The next read rebuilds it
// from the constructors. The snapshot contract is "valid until next
// invalidation".
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.plugins = nil
	r.mu.Unlock()
	r.log.Info("plugin registry invalidated")
}

func (r *Registry) build() []Plugin {
	plugins := make([]Plugin, 0, len(r.constructors))
	for _, construct := range r.constructors {
		p := construct()
		if p == nil {
			continue
		}
		plugins = append(plugins, p)
		r.log.Info("registered tool plugin", zap.String("plugin", p.Name()))
	}
	return plugins
}
