// Package internal holds small cross-cutting helpers shared by every
// component package, mirroring the teacher's top-level internal package
// (internal/netcontext.go, internal/util/*.go).
package internal

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// CloseAndLogIfError closes c and logs at Warn level if Close fails. Every
// storage method that opens *sql.Rows defers this instead of a bare
// rows.Close(), mirroring roomserver/storage/postgres/partial_state_table.go.
func CloseAndLogIfError(ctx context.Context, c io.Closer, message string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logrus.WithContext(ctx).WithError(err).Warn(message)
	}
}
