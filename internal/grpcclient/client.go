package grpcclient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/letter-recognizer/internal/grpcserver"
	"github.com/example/letter-recognizer/internal/logging"
)

// Recognizer predicts the label of an encoded image on a remote server.
type Recognizer interface {
	Predict(ctx context.Context, imageBytes []byte) (string, error)
}

// DialRecognizer returns a ready-to-use gRPC client for a running recognizer server.
func DialRecognizer(ctx context.Context, addr string, logger *zap.Logger, opts ...grpc.DialOption) (Recognizer, *grpc.ClientConn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	}, opts...)

	conn, err := grpc.DialContext(dialCtx, addr, dialOpts...)
	if err != nil {
		wrapped := logging.NewOperationError("grpcclient.dial_recognizer", "", err)
		logger.Error("failed to dial recognizer", zap.Error(wrapped), zap.String("addr", addr))
		return nil, nil, wrapped
	}
	return &grpcRecognizer{conn: conn, logger: logger}, conn, nil
}

type grpcRecognizer struct {
	conn   *grpc.ClientConn
	logger *zap.Logger
}

func (g *grpcRecognizer) Predict(ctx context.Context, imageBytes []byte) (string, error) {
	requestID := uuid.NewString()
	ctx = metadata.AppendToOutgoingContext(ctx, grpcserver.RequestIDKey, requestID)

	out := new(wrapperspb.StringValue)
	if err := g.conn.Invoke(ctx, grpcserver.PredictMethod, wrapperspb.Bytes(imageBytes), out); err != nil {
		wrapped := logging.NewOperationError("grpcclient.predict", requestID, err)
		g.logger.Error("recognizer call failed", zap.Error(wrapped), zap.String("request_id", requestID))
		return "", wrapped
	}
	return out.GetValue(), nil
}
