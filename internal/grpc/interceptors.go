// Package grpc содержит gRPC сервер linkgate.v1.Redirector и его интерцепторы
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/tempizhere/linkgate/internal/auth"
	"github.com/tempizhere/linkgate/internal/grpc/proto"
	"github.com/tempizhere/linkgate/internal/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// contextKey определяет тип для ключей контекста
type contextKey string

const ownerIDKey contextKey = "ownerID"

// protectedMethods методы, требующие JWT
var protectedMethods = map[string]bool{
	proto.CreateURLMethod: true,
}

// AuthInterceptor создаёт интерцептор для аутентификации владельцев ссылок
func AuthInterceptor(secret string, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !protectedMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}
		token, ok := middleware.BearerToken(authHeaders[0])
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		ownerID, err := auth.ParseToken(token, secret)
		if err != nil {
			logger.Warn("Invalid JWT token", zap.String("method", info.FullMethod), zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(context.WithValue(ctx, ownerIDKey, ownerID), req)
	}
}

// LoggingInterceptor создаёт интерцептор для логирования gRPC запросов
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("client_ip", peerIP(ctx)),
			zap.String("status_code", code.String()),
			zap.Duration("duration", time.Since(start)),
		}
		switch code {
		case codes.Internal, codes.Unavailable, codes.Unknown:
			logger.Error("gRPC request", append(fields, zap.Error(err))...)
		default:
			logger.Info("gRPC request", fields...)
		}

		return resp, err
	}
}

// getOwnerIDFromContext извлекает ID владельца из контекста
func getOwnerIDFromContext(ctx context.Context) (string, error) {
	if ownerID, ok := ctx.Value(ownerIDKey).(string); ok && ownerID != "" {
		return ownerID, nil
	}
	return "", status.Error(codes.Unauthenticated, "owner not authenticated")
}

// peerIP возвращает адрес соединения без порта
func peerIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	if tcpAddr, ok := p.Addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String()
	}
	if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
		return host
	}
	return p.Addr.String()
}

// clientIP возвращает адрес клиента для события перехода.
// Адрес из запроса принимается только от вызывающего из доверенной подсети.
func clientIP(ctx context.Context, reported string, trusted *net.IPNet) string {
	caller := peerIP(ctx)
	if reported == "" || trusted == nil {
		return caller
	}
	ip := net.ParseIP(caller)
	if ip == nil || !trusted.Contains(ip) || net.ParseIP(reported) == nil {
		return caller
	}
	return reported
}
