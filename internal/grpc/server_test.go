package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempizhere/linkgate/internal/auth"
	"github.com/tempizhere/linkgate/internal/cache"
	"github.com/tempizhere/linkgate/internal/grpc/proto"
	"github.com/tempizhere/linkgate/internal/models"
	"github.com/tempizhere/linkgate/internal/repository"
	"github.com/tempizhere/linkgate/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testSecret = "test-secret"

type testEnv struct {
	repo     *repository.MemoryRepository
	resolver *service.Resolver
	client   *proto.RedirectorClient
}

func setupTestServer(t *testing.T, db repository.Database) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	repo := repository.NewMemoryRepository()
	lookupCache := cache.NewMemoryCache(time.Minute)
	links := service.NewLinks(repo, lookupCache, service.LinksConfig{BaseURL: "http://localhost:8080"}, logger)
	resolver := service.NewResolver(repo, lookupCache, nil, service.ResolverConfig{}, logger)

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(NewServer(links, resolver, db, "", logger), Config{JWTSecret: testSecret})
	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		srv.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = resolver.Wait(ctx)
	})

	return &testEnv{repo: repo, resolver: resolver, client: proto.NewRedirectorClient(conn)}
}

func withToken(t *testing.T, ownerID string) context.Context {
	t.Helper()
	token, err := auth.SignToken(ownerID, testSecret, time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestServer_Resolve(t *testing.T) {
	env := setupTestServer(t, nil)
	ctx := context.Background()
	expired := time.Now().Add(-time.Minute)
	now := time.Now()
	for _, u := range []*models.URL{
		{ID: "1", ShortCode: "test123", OriginalURL: "https://example.com", OwnerID: "o", IsActive: true, RedirectType: models.RedirectPermanent, CreatedAt: now, UpdatedAt: now},
		{ID: "2", ShortCode: "old1", OriginalURL: "https://example.org", OwnerID: "o", IsActive: true, ExpiresAt: &expired, RedirectType: models.RedirectTemporary, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, env.repo.SaveURL(ctx, u))
	}

	tests := []struct {
		name           string
		path           string
		expectedCode   codes.Code
		expectedURL    string
		expectedStatus int32
	}{
		{name: "Found", path: "/test123", expectedCode: codes.OK, expectedURL: "https://example.com", expectedStatus: 301},
		{name: "Missing", path: "/nope", expectedCode: codes.NotFound},
		{name: "Expired", path: "/old1", expectedCode: codes.FailedPrecondition},
		{name: "Empty path", path: "", expectedCode: codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.client.Resolve(ctx, &proto.ResolveRequest{Host: "localhost", Path: tt.path})
			assert.Equal(t, tt.expectedCode, status.Code(err))
			if tt.expectedCode == codes.OK {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedURL, resp.URL)
				assert.Equal(t, tt.expectedStatus, resp.HTTPStatus)
				assert.Equal(t, "default", resp.Scope)
			}
		})
	}
}

func TestServer_CreateURL(t *testing.T) {
	env := setupTestServer(t, nil)

	_, err := env.client.CreateURL(context.Background(), &proto.CreateURLRequest{OriginalURL: "https://example.com"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	resp, err := env.client.CreateURL(withToken(t, "owner-1"), &proto.CreateURLRequest{
		OriginalURL:  "https://example.com/page",
		ShortCode:    "promo",
		RedirectType: "TEMPORARY",
	})
	require.NoError(t, err)
	assert.Equal(t, "promo", resp.ShortCode)
	assert.Equal(t, "http://localhost:8080/promo", resp.ShortURL)

	_, err = env.client.CreateURL(withToken(t, "owner-2"), &proto.CreateURLRequest{OriginalURL: "https://example.com", ShortCode: "promo"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = env.client.CreateURL(withToken(t, "owner-1"), &proto.CreateURLRequest{OriginalURL: "not a url"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	// Созданная ссылка сразу разрешается
	decision, err := env.client.Resolve(context.Background(), &proto.ResolveRequest{Host: "localhost", Path: "/promo"})
	require.NoError(t, err)
	assert.Equal(t, int32(302), decision.HTTPStatus)
}

func TestServer_Ping(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := repository.NewMockDatabase(ctrl)
	mockDB.EXPECT().PingContext(gomock.Any()).Return(nil)
	mockDB.EXPECT().PingContext(gomock.Any()).Return(errors.New("connection failed"))

	env := setupTestServer(t, mockDB)
	resp, err := env.client.Ping(context.Background(), &proto.PingRequest{})
	require.NoError(t, err)
	assert.True(t, resp.DatabaseAvailable)

	resp, err = env.client.Ping(context.Background(), &proto.PingRequest{})
	require.NoError(t, err)
	assert.False(t, resp.DatabaseAvailable)

	noDB := setupTestServer(t, nil)
	resp, err = noDB.client.Ping(context.Background(), &proto.PingRequest{})
	require.NoError(t, err)
	assert.False(t, resp.DatabaseAvailable)
}

func TestMapError(t *testing.T) {
	s := &Server{logger: zap.NewNop()}

	tests := []struct {
		err      error
		expected codes.Code
	}{
		{service.ErrNotFound, codes.NotFound},
		{service.ErrGone, codes.FailedPrecondition},
		{service.ErrInvalidShortCode, codes.InvalidArgument},
		{service.ErrPlanLimit, codes.ResourceExhausted},
		{service.ErrGenerationExhausted, codes.AlreadyExists},
		{service.ErrDomainNotVerified, codes.NotFound},
		{errors.Join(service.ErrInfrastructure, errors.New("dial tcp")), codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, status.Code(s.mapError(tt.err)))
		})
	}
	assert.NoError(t, s.mapError(nil))
}

func TestClientIP(t *testing.T) {
	_, trusted, err := net.ParseCIDR("10.0.0.0/8")
	require.NoError(t, err)
	fromProxy := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 5000}})
	fromOutside := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("203.0.113.9"), Port: 5000}})

	assert.Equal(t, "198.51.100.1", clientIP(fromProxy, "198.51.100.1", trusted))
	assert.Equal(t, "203.0.113.9", clientIP(fromOutside, "198.51.100.1", trusted))
	assert.Equal(t, "10.0.0.5", clientIP(fromProxy, "198.51.100.1", nil))
	assert.Equal(t, "10.0.0.5", clientIP(fromProxy, "garbage", trusted))
	assert.Equal(t, "", clientIP(context.Background(), "", nil))
}

func TestAuthInterceptor(t *testing.T) {
	interceptor := AuthInterceptor(testSecret, zap.NewNop())
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return getOwnerIDFromContext(ctx)
	}

	// Публичный метод не требует токена
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: proto.ResolveMethod}, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	})
	assert.NoError(t, err)

	info := &grpc.UnaryServerInfo{FullMethod: proto.CreateURLMethod}
	token, err := auth.SignToken("owner-1", testSecret, time.Hour)
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	owner, err := interceptor(ctx, nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", owner)

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer broken"))
	_, err = interceptor(ctx, nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = interceptor(context.Background(), nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
