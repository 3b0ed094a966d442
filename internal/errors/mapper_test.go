package errors_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	svcErr "github.com/takumayoshiokadotcom/kyonomi/internal/errors"
	"github.com/takumayoshiokadotcom/kyonomi/internal/store"
)

func TestMap(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"duplicate like", svcErr.ErrDuplicateLike, codes.AlreadyExists},
		{"wrapped sentinel", fmt.Errorf("send like: %w", svcErr.ErrDuplicateLike), codes.AlreadyExists},
		{"unauthenticated", svcErr.ErrUnauthenticated, codes.Unauthenticated},
		{"already responded", svcErr.ErrAlreadyResponded, codes.FailedPrecondition},
		{"both stores failed", &store.OperationFailedError{Op: "users get", Remote: store.ErrNotFound, Local: fmt.Errorf("disk")}, codes.Unavailable},
		{"gorm not found", gorm.ErrRecordNotFound, codes.NotFound},
		{"store not found", fmt.Errorf("get: %w", store.ErrNotFound), codes.NotFound},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"other", fmt.Errorf("boom"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, ok := status.FromError(svcErr.Map(tc.err))
			assert.True(t, ok)
			assert.Equal(t, tc.want, st.Code())
		})
	}
	assert.Nil(t, svcErr.Map(nil))
}

func TestMap_KeepsUserMessage(t *testing.T) {
	st, _ := status.FromError(svcErr.Map(fmt.Errorf("get user: %w", &store.OperationFailedError{Op: "users get", Remote: fmt.Errorf("dial tcp: refused"), Local: fmt.Errorf("disk")})))
	assert.Equal(t, "operation failed", st.Message())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, svcErr.HTTPStatus(store.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, svcErr.HTTPStatus(fmt.Errorf("x: %w", store.ErrInvalid)))
	assert.Equal(t, http.StatusConflict, svcErr.HTTPStatus(gorm.ErrDuplicatedKey))
	assert.Equal(t, http.StatusConflict, svcErr.HTTPStatus(svcErr.ErrDuplicateEmail))
	assert.Equal(t, http.StatusInternalServerError, svcErr.HTTPStatus(fmt.Errorf("boom")))
}
