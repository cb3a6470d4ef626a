package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-layout/internal/orchestrator"
)

// #region client-interface
// LayoutServiceClient is the client side of layout.v1.LayoutService.
type LayoutServiceClient interface {
	Decide(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Feedback(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Stats(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type layoutServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLayoutServiceClient returns a raw client over cc.
func NewLayoutServiceClient(cc grpc.ClientConnInterface) LayoutServiceClient {
	return &layoutServiceClient{cc: cc}
}

func (c *layoutServiceClient) Decide(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodDecide, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *layoutServiceClient) Feedback(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodFeedback, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *layoutServiceClient) Stats(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodStats, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion client-interface

// #region client-struct
// Client wraps the gRPC connection to a layout decision server.
type Client struct {
	conn   *grpc.ClientConn
	client LayoutServiceClient
}

// #endregion client-struct

// #region constructor
// NewClient connects to the layout decision server at addr.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, client: NewLayoutServiceClient(conn)}, nil
}

// NewClientWithService creates a Client over an injected service.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc LayoutServiceClient) *Client {
	return &Client{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region decide
// Decide requests a layout decision.
func (c *Client) Decide(ctx context.Context, req orchestrator.DecisionRequest) (orchestrator.Response, error) {
	var out orchestrator.Response
	if err := c.call(ctx, c.client.Decide, req, &out); err != nil {
		return orchestrator.Response{}, fmt.Errorf("decide rpc: %w", err)
	}
	return out, nil
}

// #endregion decide

// #region feedback
// Feedback reports the outcome of a decision.
func (c *Client) Feedback(ctx context.Context, req orchestrator.FeedbackRequest) (orchestrator.FeedbackResponse, error) {
	var out orchestrator.FeedbackResponse
	if err := c.call(ctx, c.client.Feedback, req, &out); err != nil {
		return orchestrator.FeedbackResponse{}, fmt.Errorf("feedback rpc: %w", err)
	}
	return out, nil
}

// #endregion feedback

// #region stats
// Stats fetches the server's counters.
func (c *Client) Stats(ctx context.Context) (orchestrator.Stats, error) {
	var out orchestrator.Stats
	if err := c.call(ctx, c.client.Stats, struct{}{}, &out); err != nil {
		return orchestrator.Stats{}, fmt.Errorf("stats rpc: %w", err)
	}
	return out, nil
}

// #endregion stats

type rpc func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)

func (c *Client) call(ctx context.Context, method rpc, req, out any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	resp, err := method(ctx, in)
	if err != nil {
		return err
	}
	return fromStruct(resp, out)
}
