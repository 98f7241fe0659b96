package grpcserver

import (
	"context"
	"net"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/letter-recognizer/internal/labels"
	"github.com/example/letter-recognizer/internal/normalizer"
	"github.com/example/letter-recognizer/internal/usecase"
)

type fixedModel struct {
	index int
	panic bool
}

func (m *fixedModel) Score(ctx context.Context, input *normalizer.Tensor) ([]float32, error) {
	if m.panic {
		panic("model exploded")
	}
	scores := make([]float32, labels.Len())
	scores[m.index] = 1
	return scores, nil
}

func (m *fixedModel) OutputWidth() int { return labels.Len() }

func startServer(t *testing.T, model *fixedModel) *grpc.ClientConn {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	srv := New(usecase.NewPredictionUseCase(model, zap.NewNop()), Options{MaxUploadSize: 1 << 16})
	go func() {
		_ = srv.Serve(listener)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial bufconn: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func predict(conn *grpc.ClientConn, payload []byte) (string, error) {
	out := new(wrapperspb.StringValue)
	err := conn.Invoke(context.Background(), PredictMethod, wrapperspb.Bytes(payload), out)
	return out.GetValue(), err
}

func TestPredictReturnsLabel(t *testing.T) {
	conn := startServer(t, &fixedModel{index: 13})

	label, err := predict(conn, testPNG(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != "क" {
		t.Fatalf("expected क, got %q", label)
	}
}

func TestPredictErrorCodes(t *testing.T) {
	cases := []struct {
		name    string
		model   *fixedModel
		payload []byte
		code    codes.Code
		message string
	}{
		{name: "empty payload", model: &fixedModel{}, payload: nil, code: codes.InvalidArgument, message: "No image uploaded"},
		{name: "not an image", model: &fixedModel{}, payload: []byte("plain text"), code: codes.Internal},
		{name: "oversize", model: &fixedModel{}, payload: make([]byte, 1<<17), code: codes.ResourceExhausted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn := startServer(t, tc.model)
			_, err := predict(conn, tc.payload)
			if status.Code(err) != tc.code {
				t.Fatalf("expected code %s, got %v", tc.code, err)
			}
			if tc.message != "" && status.Convert(err).Message() != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, status.Convert(err).Message())
			}
			if tc.code == codes.Internal && status.Convert(err).Message() == "" {
				t.Fatal("expected non-empty internal error message")
			}
		})
	}
}

func TestPanicInsideModelIsRecovered(t *testing.T) {
	conn := startServer(t, &fixedModel{panic: true})

	_, err := predict(conn, testPNG(t))
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if status.Convert(err).Message() != "model exploded" {
		t.Fatalf("unexpected message %q", status.Convert(err).Message())
	}
}

func TestHealthService(t *testing.T) {
	conn := startServer(t, &fixedModel{})

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("unexpected status %s", resp.GetStatus())
	}
}

func TestIsServerClosed(t *testing.T) {
	if !IsServerClosed(nil) || !IsServerClosed(grpc.ErrServerStopped) {
		t.Fatal("expected regular stop to be recognised")
	}
	if IsServerClosed(context.Canceled) {
		t.Fatal("unexpected match for unrelated error")
	}
}
