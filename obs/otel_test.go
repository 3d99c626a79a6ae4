package obs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "lend-tool", "", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracerResourceErrorReleasesConn(t *testing.T) {
	origDial, origRes := dialCollector, newResource
	t.Cleanup(func() { dialCollector, newResource = origDial, origRes })

	var conn *grpc.ClientConn
	dialCollector = func(endpoint string) (*grpc.ClientConn, error) {
		c, err := origDial(endpoint)
		conn = c
		return c, err
	}
	newResource = func(context.Context, string, string) (*resource.Resource, error) {
		return nil, errors.New("bad attributes")
	}

	shutdown, err := InitTracer(context.Background(), "lend-tool", "127.0.0.1:4317", "test")
	require.Error(t, err)
	assert.Nil(t, shutdown)
	assert.Contains(t, err.Error(), "otel resource")
	require.NotNil(t, conn)
	assert.Equal(t, connectivity.Shutdown, conn.GetState())
}
