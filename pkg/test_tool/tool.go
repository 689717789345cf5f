package testtool

import (
	"context"
	"net"
	"strings"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"google.golang.org/grpc"
)

// SetupContainer start req and return its host and the mapped first exposed port
func SetupContainer(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, string, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, "", "", err
	}

	// 轉換 ExposedPorts[0] 為 nat.Port
	natPort, err := nat.NewPort("tcp", strings.TrimSuffix(req.ExposedPorts[0], "/tcp"))
	if err != nil {
		return nil, "", "", err
	}

	port, err := container.MappedPort(ctx, natPort)
	if err != nil {
		return nil, "", "", err
	}

	return container, host, port.Port(), nil
}

// StartGRPCServer serve on a random local port, register attaches the services
func StartGRPCServer(register func(s *grpc.Server)) (*grpc.Server, string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0") // 隨機取得可用 Port
	if err != nil {
		return nil, "", err
	}

	grpcServer := grpc.NewServer()
	register(grpcServer)

	go func() {
		_ = grpcServer.Serve(listener)
	}()

	return grpcServer, listener.Addr().String(), nil
}
