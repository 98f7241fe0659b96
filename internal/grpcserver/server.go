// Package grpcserver exposes the prediction use case over gRPC.
//
// The service carries raw image bytes in a google.protobuf.BytesValue and
// answers with the predicted label in a google.protobuf.StringValue, so no
// generated code is required on either side.
package grpcserver

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/letter-recognizer/internal/usecase"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "letterrecognizer.v1.Recognizer"
	// PredictMethod is the full method path of Predict.
	PredictMethod = "/" + ServiceName + "/Predict"
	// RequestIDKey is the metadata key carrying the caller's request id.
	RequestIDKey = "x-request-id"
)

// RecognizerServer is the server API for the Recognizer service.
type RecognizerServer interface {
	Predict(context.Context, *wrapperspb.BytesValue) (*wrapperspb.StringValue, error)
}

var recognizerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecognizerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Predict", Handler: predictHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "letterrecognizer/v1/recognizer.proto",
}

func predictHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecognizerServer).Predict(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PredictMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RecognizerServer).Predict(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Options configures the gRPC server.
type Options struct {
	// MaxUploadSize bounds the image payload; zero keeps the gRPC default.
	MaxUploadSize int64
	Logger        *zap.Logger
}

type recognizer struct {
	uc     *usecase.PredictionUseCase
	logger *zap.Logger
}

// New builds a gRPC server with the Recognizer and health services registered.
func New(uc *usecase.PredictionUseCase, opts Options) *grpc.Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("grpc")

	serverOpts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(recoverInterceptor(logger), logInterceptor(logger))}
	if opts.MaxUploadSize > 0 {
		// Leave room for the message framing around the payload.
		serverOpts = append(serverOpts, grpc.MaxRecvMsgSize(int(opts.MaxUploadSize)+1024))
	}

	srv := grpc.NewServer(serverOpts...)
	srv.RegisterService(&recognizerServiceDesc, &recognizer{uc: uc, logger: logger})

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)

	return srv
}

func (r *recognizer) Predict(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if len(in.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, usecase.ErrNoImage.Reason)
	}

	prediction, err := r.uc.Predict(ctx, requestIDFrom(ctx), in.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(prediction.Label), nil
}

func toStatus(err error) error {
	clientErr, serverErr := usecase.Classify(err)
	if clientErr != nil {
		return status.Error(codes.InvalidArgument, clientErr.Reason)
	}
	return status.Error(codes.Internal, serverErr.Message)
}

func requestIDFrom(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(RequestIDKey); len(values) > 0 && len(values[0]) <= 64 {
		return values[0]
	}
	return ""
}

func logInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestIDFrom(ctx)),
		)
		return resp, err
	}
}

func recoverInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("panic while handling rpc", zap.Any("panic", recovered), zap.String("method", info.FullMethod))
				err = status.Errorf(codes.Internal, "%v", recovered)
			}
		}()
		return handler(ctx, req)
	}
}

// IsServerClosed reports whether err only signals a regular server stop.
func IsServerClosed(err error) bool {
	return err == nil || errors.Is(err, grpc.ErrServerStopped)
}
