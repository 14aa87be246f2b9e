// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	"github.com/lmshub/toolhub/internal/app/system/indexes"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// EnsureSchema creates the collection indexes the stores and the
// policy layer rely on. The unique indexes are the idempotence
// mechanism for membership and restriction adds.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return err
	}
	return nil
}
