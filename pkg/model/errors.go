package model

import (
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/kart-io/mongokit/pkg/errors"
)

var (
	// ErrInvalidObjectID is returned for malformed ObjectID input.
	ErrInvalidObjectID = errors.Register(&errors.Errno{
		Code:      errors.MakeCode(errors.ServiceMongoKit, errors.CategoryRequest, 3),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Invalid ObjectId",
		MessageZH: "无效的 ObjectId",
	})

	// ErrNonUTCTime is returned for datetimes carrying a non-UTC offset.
	ErrNonUTCTime = errors.Register(&errors.Errno{
		Code:      errors.MakeCode(errors.ServiceMongoKit, errors.CategoryRequest, 4),
		HTTP:      http.StatusBadRequest,
		GRPCCode:  codes.InvalidArgument,
		MessageEN: "Non-UTC timezone",
		MessageZH: "非 UTC 时区",
	})
)
