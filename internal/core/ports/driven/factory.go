package driven

import (
	"context"

	"github.com/custodia-labs/stevedore/internal/core/domain"
)

// ConnectorFactory opens the enumerator for a run target.
type ConnectorFactory interface {
	// Create returns a Connector for a local or S3 target.
	// Returns ErrUnsupportedType for target kinds it cannot enumerate.
	Create(ctx context.Context, target domain.Target) (Connector, error)

	// Rows returns a RowReader for a tabular target.
	Rows(ctx context.Context, target domain.Target) (RowReader, error)
}
