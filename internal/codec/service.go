// Package codec exposes the orchestrator over gRPC as layout.v1.LayoutService.
// Messages are google.protobuf.Struct values carrying the same JSON shapes
// as the HTTP API, so no generated code is needed.
package codec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-layout/internal/engine"
	"github.com/danielpatrickdp/adaptive-layout/internal/logging"
	"github.com/danielpatrickdp/adaptive-layout/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-layout/internal/signals"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "layout.v1.LayoutService"

const (
	methodDecide   = "/" + ServiceName + "/Decide"
	methodFeedback = "/" + ServiceName + "/Feedback"
	methodStats    = "/" + ServiceName + "/Stats"
)

// #region server-interface
// LayoutServiceServer is the server side of layout.v1.LayoutService.
type LayoutServiceServer interface {
	Decide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Feedback(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes layout.v1.LayoutService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LayoutServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decide", Handler: unaryHandler(methodDecide, LayoutServiceServer.Decide)},
		{MethodName: "Feedback", Handler: unaryHandler(methodFeedback, LayoutServiceServer.Feedback)},
		{MethodName: "Stats", Handler: unaryHandler(methodStats, LayoutServiceServer.Stats)},
	},
	Metadata: "layout/v1/layout.proto",
}

type unaryMethod func(LayoutServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LayoutServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(LayoutServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv LayoutServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// #endregion server-interface

// #region server
// Server adapts an orchestrator to LayoutServiceServer.
type Server struct {
	orch *orchestrator.Orchestrator
}

// NewServer returns a gRPC facade for orch.
func NewServer(orch *orchestrator.Orchestrator) *Server {
	return &Server{orch: orch}
}

// Decide implements LayoutServiceServer.
func (s *Server) Decide(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req orchestrator.DecisionRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode decision request: %v", err)
	}
	return toStruct(s.orch.Decide(req))
}

// Feedback implements LayoutServiceServer.
func (s *Server) Feedback(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req orchestrator.FeedbackRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode feedback: %v", err)
	}
	resp, err := s.orch.Feedback(req)
	if err != nil {
		return nil, status.Error(FeedbackCode(err), err.Error())
	}
	return toStruct(resp)
}

// Stats implements LayoutServiceServer.
func (s *Server) Stats(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(s.orch.Stats())
}

// FeedbackCode maps a feedback error to a gRPC status code.
func FeedbackCode(err error) codes.Code {
	switch {
	case errors.Is(err, engine.ErrRejected):
		return codes.FailedPrecondition
	case errors.Is(err, signals.ErrNoReward), errors.Is(err, orchestrator.ErrIncompleteFeedback):
		return codes.InvalidArgument
	case errors.Is(err, orchestrator.ErrDuplicateFeedback):
		return codes.AlreadyExists
	}
	return codes.Internal
}

// LoggingInterceptor logs every unary call at debug level.
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	log := logging.New("grpc")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("rpc",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("took", time.Since(start)))
		return resp, err
	}
}

// #endregion server

// #region convert
// toStruct converts any JSON-encodable value to a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return out, nil
}

// fromStruct decodes a Struct into v through its JSON form.
func fromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		in = new(structpb.Struct)
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// #endregion convert
