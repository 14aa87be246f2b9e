// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/lmshub/toolhub/internal/app/system/auth"
	"github.com/lmshub/toolhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	secure := coreCfg.Env == "prod"
	if err := auth.InitSessionStore(appCfg.SessionKey, appCfg.SessionDomain, secure, logger); err != nil {
		return fmt.Errorf("session store init: %w", err)
	}

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, logger); err != nil {
			return fmt.Errorf("admin bootstrap: %w", err)
		}
	}

	return nil
}

// ensureAdmin creates the named user with the admin role, or promotes
// an existing user to admin. The created account has no password; one
// is set out of band.
func ensureAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	users := deps.MongoDatabase.Collection("users")
	emailCI := text.Fold(email)

	var existing models.User
	err := users.FindOne(ctx, bson.M{"email": emailCI}).Decode(&existing)
	switch {
	case err == nil:
		if existing.Role == "admin" {
			return nil
		}
		_, err = users.UpdateOne(ctx,
			bson.M{"_id": existing.ID},
			bson.M{"$set": bson.M{"role": "admin", "updated_at": time.Now().UTC()}})
		if err != nil {
			return err
		}
		logger.Info("promoted existing user to admin",
			zap.String("user_id", existing.ID.Hex()))
		return nil

	case err == mongo.ErrNoDocuments:
		now := time.Now().UTC()
		u := models.User{
			ID:         primitive.NewObjectID(),
			FullName:   "Administrator",
			FullNameCI: text.Fold("Administrator"),
			Email:      emailCI,
			Role:       "admin",
			Status:     "active",
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if _, err := users.InsertOne(ctx, u); err != nil {
			return err
		}
		logger.Info("created bootstrap admin user",
			zap.String("user_id", u.ID.Hex()))
		return nil

	default:
		return err
	}
}
