package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/khoahotran/devconnect/internal/domain/profile"
	"github.com/khoahotran/devconnect/pkg/apperror"
)

const (
	ownerIndexName  = "owner_unique"
	handleIndexName = "handle_unique"
)

func profileNotFound(key, value string) error {
	return apperror.NewNotFound("profile", key+"="+value).WithCause(profile.ErrNotFound)
}

func duplicateHandle(handle string) error {
	return apperror.NewConflict("profile", "handle", handle).WithCause(profile.ErrDuplicateHandle)
}

func duplicateOwner(owner string) error {
	return apperror.NewConflict("profile", "owner", owner).WithCause(profile.ErrDuplicateOwner)
}

// classifyMongoErr maps driver failures onto the app error kinds. Network
// and timeout failures become ErrUnavailable so callers can tell them apart
// from bugs.
func classifyMongoErr(op string, err error) error {
	switch {
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, mongo.ErrClientDisconnected):
		return apperror.NewUnavailable(fmt.Sprintf("mongo %s failed", op), err)
	default:
		return apperror.NewInternal(fmt.Sprintf("mongo %s failed", op), err)
	}
}

// classifyDuplicate tells owner and handle collisions apart by the index
// named in the server message.
func classifyDuplicate(err error, owner, handle string) error {
	if strings.Contains(err.Error(), handleIndexName) {
		return duplicateHandle(handle)
	}
	return duplicateOwner(owner)
}

func classifyPgErr(details string, err error) error {
	var connErr *pgconn.ConnectError
	if pgconn.Timeout(err) || errors.As(err, &connErr) {
		return apperror.NewUnavailable(details, err)
	}
	return apperror.NewInternal(details, err)
}
