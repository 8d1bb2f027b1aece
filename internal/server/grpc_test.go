package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServerCheck(t *testing.T) {
	up := NewHealthServer(fakePinger{}, quiet)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, up.Check(context.Background()))

	down := NewHealthServer(fakePinger{err: errors.New("down")}, quiet)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, down.Check(context.Background()))

	resp, err := down.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	assert.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
