// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	uierrors "github.com/dalemusser/carehub/internal/app/features/errors"
	"github.com/dalemusser/carehub/internal/app/store/audit"
	"github.com/dalemusser/carehub/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// ViewPermission gates the audit log page.
const ViewPermission = viewdata.AuditPermission

// eventStore is the part of audit.Store the viewer reads from.
type eventStore interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	Count(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

type Handler struct {
	Store     eventStore
	Resources []string // resource names offered in the filter
	Log       *zap.Logger
	ErrLog    *uierrors.ErrorLogger
}

// NewHandler constructs the audit log viewer over store.
func NewHandler(store eventStore, resources []string, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:     store,
		Resources: resources,
		Log:       logger,
		ErrLog:    errLog,
	}
}
