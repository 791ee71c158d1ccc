package interceptor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnary(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	ic := Unary()

	resp, err := ic(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)

	_, err = ic(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")

	_, err = ic(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("handler exploded")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}
