package lifecycle

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeServer struct {
	online map[string]bool
	images map[string]string
}

func (f *fakeServer) CreateUser(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := CreateUserRequestFromStruct(in)
	if req.Email == "" {
		return nil, status.Error(codes.InvalidArgument, "email required")
	}
	return CreateUserResponse{UserID: "u-1", Username: req.Email[:3], Created: true}.ToStruct(), nil
}

func (f *fakeServer) UpdateUserImage(_ context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	f.images[String(in, FieldTokenIdentifier)] = String(in, FieldImage)
	return &emptypb.Empty{}, nil
}

func (f *fakeServer) SetUserOnline(_ context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	f.online[String(in, FieldTokenIdentifier)] = true
	return &emptypb.Empty{}, nil
}

func (f *fakeServer) SetUserOffline(_ context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	id := String(in, FieldTokenIdentifier)
	if _, ok := f.online[id]; !ok {
		return nil, status.Error(codes.NotFound, "User not found")
	}
	f.online[id] = false
	return &emptypb.Empty{}, nil
}

func dial(t *testing.T, srv UserLifecycleServer) UserLifecycleClient {
	lis := bufconn.Listen(1024 * 1024)
	s := grpc.NewServer()
	RegisterUserLifecycleServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewUserLifecycleClient(conn)
}

func TestUserLifecycle_RoundTrip(t *testing.T) {
	srv := &fakeServer{online: map[string]bool{}, images: map[string]string{}}
	client := dial(t, srv)
	ctx := context.Background()

	t.Run("create user", func(t *testing.T) {
		out, err := client.CreateUser(ctx, CreateUserRequest{TokenIdentifier: "user_1", Email: "bob@x.com"}.ToStruct())
		require.NoError(t, err)
		res := CreateUserResponseFromStruct(out)
		assert.Equal(t, CreateUserResponse{UserID: "u-1", Username: "bob", Created: true}, res)
	})

	t.Run("status code survives the wire", func(t *testing.T) {
		_, err := client.CreateUser(ctx, CreateUserRequest{TokenIdentifier: "user_1"}.ToStruct())
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("image and presence", func(t *testing.T) {
		_, err := client.UpdateUserImage(ctx, ImageRequest("user_1", "http://img/1.png"))
		require.NoError(t, err)
		_, err = client.SetUserOnline(ctx, SubjectRequest("user_1"))
		require.NoError(t, err)
		_, err = client.SetUserOffline(ctx, SubjectRequest("user_1"))
		require.NoError(t, err)

		assert.Equal(t, "http://img/1.png", srv.images["user_1"])
		assert.False(t, srv.online["user_1"])
	})

	t.Run("offline unknown", func(t *testing.T) {
		_, err := client.SetUserOffline(ctx, SubjectRequest("ghost"))
		assert.Equal(t, codes.NotFound, status.Code(err))
	})
}

func TestFieldReaders(t *testing.T) {
	assert.Equal(t, "", String(nil, FieldEmail))
	assert.False(t, Bool(nil, FieldCreated))

	s := SubjectRequest("abc")
	assert.Equal(t, "abc", String(s, FieldTokenIdentifier))
	assert.Equal(t, "", String(s, FieldEmail))
}
