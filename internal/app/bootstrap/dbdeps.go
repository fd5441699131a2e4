// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/carehub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database dependencies for the app. All fields are nil
// when no Mongo URI is configured.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Audit         *audit.Store
}
