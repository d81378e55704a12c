package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/receiptbox/internal/common"
)

const (
	UserIDHeader    = "x-user-id"
	RequestIDHeader = "x-request-id"
)

// methods that work without a caller identity
var anonymousMethods = map[string]bool{
	"/" + ServiceName + "/ParseText": true,
	"/" + ServiceName + "/Classify":  true,
}

func firstValue(md metadata.MD, key string) string {
	if vals := md.Get(key); len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

// UnaryInterceptor attaches the caller's user and request ids to the context and logs each call.
// Receipts methods other than ParseText and Classify are rejected without x-user-id.
func UnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)

		requestID := firstValue(md, RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, requestID)

		userID := firstValue(md, UserIDHeader)
		if userID != "" {
			ctx = common.WithUserID(ctx, userID)
		} else if strings.HasPrefix(info.FullMethod, "/"+ServiceName+"/") && !anonymousMethods[info.FullMethod] {
			logger.Warn("rejected call without user", "method", info.FullMethod, "request_id", requestID)
			return nil, common.ToStatus(common.ErrUnauthorized)
		}

		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"method", info.FullMethod,
			"request_id", requestID,
			"user_id", userID,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds())
		return resp, err
	}
}
