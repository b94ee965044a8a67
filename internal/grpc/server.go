package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/tempizhere/linkgate/internal/grpc/proto"
	"github.com/tempizhere/linkgate/internal/models"
	"github.com/tempizhere/linkgate/internal/repository"
	"github.com/tempizhere/linkgate/internal/service"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const pingTimeout = 2 * time.Second

// Config параметры gRPC сервера
type Config struct {
	JWTSecret string
}

// Server реализует gRPC сервис linkgate.v1.Redirector
type Server struct {
	proto.UnimplementedRedirectorServer
	links    *service.Links
	resolver *service.Resolver
	db       repository.Database
	trusted  *net.IPNet
	logger   *zap.Logger
}

// NewServer создаёт новый gRPC сервер. db может быть nil.
func NewServer(links *service.Links, resolver *service.Resolver, db repository.Database, trustedSubnet string, logger *zap.Logger) *Server {
	s := &Server{
		links:    links,
		resolver: resolver,
		db:       db,
		logger:   logger,
	}
	if trustedSubnet != "" {
		if _, network, err := net.ParseCIDR(trustedSubnet); err != nil {
			logger.Error("Invalid trusted subnet", zap.String("subnet", trustedSubnet), zap.Error(err))
		} else {
			s.trusted = network
		}
	}
	return s
}

// NewGRPCServer создаёт grpc.Server с интерцепторами и зарегистрированным сервисом
func NewGRPCServer(srv *Server, cfg Config, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(
		LoggingInterceptor(srv.logger),
		AuthInterceptor(cfg.JWTSecret, srv.logger),
	))
	s := grpc.NewServer(opts...)
	proto.RegisterRedirectorServer(s, srv)
	return s
}

// Resolve разрешает короткую ссылку так же, как HTTP-редирект
func (s *Server) Resolve(ctx context.Context, req *proto.ResolveRequest) (*proto.ResolveResponse, error) {
	if req.Path == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}

	decision, err := s.resolver.Resolve(ctx, req.Host, req.Path, service.ClientInfo{
		IP:        clientIP(ctx, req.ClientIP, s.trusted),
		UserAgent: req.UserAgent,
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return &proto.ResolveResponse{
		URL:        decision.URL,
		HTTPStatus: int32(decision.HTTPStatus),
		ShortCode:  decision.ShortCode,
		Scope:      string(decision.Scope),
		CacheHit:   decision.CacheHit,
	}, nil
}

// CreateURL создаёт короткую ссылку от имени владельца токена
func (s *Server) CreateURL(ctx context.Context, req *proto.CreateURLRequest) (*proto.CreateURLResponse, error) {
	if req.OriginalURL == "" {
		return nil, status.Error(codes.InvalidArgument, "original URL is required")
	}

	ownerID, err := getOwnerIDFromContext(ctx)
	if err != nil {
		return nil, err
	}

	create := models.CreateURLRequest{
		OriginalURL:  req.OriginalURL,
		ShortCode:    req.ShortCode,
		ExpiresAt:    req.ExpiresAt,
		RedirectType: models.RedirectType(req.RedirectType),
	}
	if req.DomainID != "" {
		create.DomainID = &req.DomainID
	}

	u, err := s.links.CreateURL(ctx, ownerID, create)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &proto.CreateURLResponse{
		ID:        u.ID,
		ShortCode: u.ShortCode,
		ShortURL:  s.links.ShortURL(ctx, u),
	}, nil
}

// Ping проверяет состояние базы данных
func (s *Server) Ping(ctx context.Context, req *proto.PingRequest) (*proto.PingResponse, error) {
	if s.db == nil {
		return &proto.PingResponse{DatabaseAvailable: false}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := s.db.PingContext(ctx)
	return &proto.PingResponse{
		DatabaseAvailable: err == nil,
	}, nil
}

// mapError преобразует ошибки бизнес-логики в gRPC статусы
func (s *Server) mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrGone):
		return status.Error(codes.FailedPrecondition, service.ErrGone.Error())
	case errors.Is(err, service.ErrInvalidURL),
		errors.Is(err, service.ErrInvalidShortCode),
		errors.Is(err, service.ErrInvalidRedirectType):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrPlanLimit):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, service.ErrShortCodeTaken), errors.Is(err, service.ErrGenerationExhausted):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrDomainNotVerified):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInfrastructure):
		s.logger.Warn("Dependency unavailable", zap.Error(err))
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		s.logger.Error("Unexpected error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}
