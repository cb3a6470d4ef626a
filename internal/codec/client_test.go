package codec

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-layout/internal/affordance"
	"github.com/danielpatrickdp/adaptive-layout/internal/compose"
	"github.com/danielpatrickdp/adaptive-layout/internal/engine"
	"github.com/danielpatrickdp/adaptive-layout/internal/intent"
	"github.com/danielpatrickdp/adaptive-layout/internal/layout"
	"github.com/danielpatrickdp/adaptive-layout/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-layout/internal/signals"
	"github.com/danielpatrickdp/adaptive-layout/internal/state"
)

// #region mock
type mockLayoutService struct {
	err error
}

func (m *mockLayoutService) Decide(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error) {
	return nil, m.err
}

func (m *mockLayoutService) Feedback(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error) {
	return nil, m.err
}

func (m *mockLayoutService) Stats(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error) {
	return nil, m.err
}

// #endregion mock

func newBufconnClient(t *testing.T) *Client {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.SaveEvery = 0
	eng, err := engine.New(cfg, state.NewMemStore())
	require.NoError(t, err)
	reg := affordance.NewRegistry()
	reg.RegisterAll(affordance.DefaultCatalog())
	orch, err := orchestrator.NewOrchestrator(eng, layout.NewGenerator(), compose.NewComposer(reg))
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor()))
	Register(srv, NewServer(orch))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_DecideFeedbackStats(t *testing.T) {
	c := newBufconnClient(t)
	ctx := context.Background()

	resp, err := c.Decide(ctx, orchestrator.DecisionRequest{Domain: "dashboard", Goal: "kpi-focus", Density: "medium", Action: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Action)
	assert.Equal(t, orchestrator.SourceForced, resp.Debug.Source)
	require.NotNil(t, resp.Layout)
	assert.Equal(t, "grid-2x2", resp.Layout.Structure.Type)
	assert.Len(t, resp.Composition, len(resp.Layout.Slots))
	assert.Len(t, resp.State, intent.VectorLen)

	reward := 1.0
	fb, err := c.Feedback(ctx, orchestrator.FeedbackRequest{DecisionID: resp.DecisionID, Reward: &reward})
	require.NoError(t, err)
	assert.Equal(t, 2, fb.Action)
	assert.Equal(t, "commit", fb.Result.Decision.Action)

	_, err = c.Feedback(ctx, orchestrator.FeedbackRequest{DecisionID: resp.DecisionID, Reward: &reward})
	require.Error(t, err)
	assert.Equal(t, codes.AlreadyExists, status.Code(errors.Unwrap(err)))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Engine.Steps)
	assert.Equal(t, 1, stats.Engine.Bandits.Contexts["dashboard"]["ucb"].Counts[2])
}

func TestClient_FeedbackErrorsCarryStatus(t *testing.T) {
	c := newBufconnClient(t)
	ctx := context.Background()
	resp, err := c.Decide(ctx, orchestrator.DecisionRequest{Domain: "blog"})
	require.NoError(t, err)

	_, err = c.Feedback(ctx, orchestrator.FeedbackRequest{DecisionID: resp.DecisionID})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(errors.Unwrap(err)))

	bad := 42
	reward := 1.0
	_, err = c.Feedback(ctx, orchestrator.FeedbackRequest{
		Action: &bad, Reward: &reward, PriorState: make([]float64, intent.VectorLen),
	})
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(errors.Unwrap(err)))
}

func TestClient_WrapsTransportErrors(t *testing.T) {
	c := NewClientWithService(&mockLayoutService{err: errors.New("connection refused")})

	_, err := c.Decide(context.Background(), orchestrator.DecisionRequest{})
	assert.ErrorContains(t, err, "decide rpc")
	_, err = c.Feedback(context.Background(), orchestrator.FeedbackRequest{})
	assert.ErrorContains(t, err, "feedback rpc")
	_, err = c.Stats(context.Background())
	assert.ErrorContains(t, err, "stats rpc")
	assert.NoError(t, c.Close())
}

func TestFeedbackCode(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("feedback: %w", engine.ErrRejected), codes.FailedPrecondition},
		{fmt.Errorf("feedback: %w", signals.ErrNoReward), codes.InvalidArgument},
		{fmt.Errorf("feedback: %w", orchestrator.ErrIncompleteFeedback), codes.InvalidArgument},
		{fmt.Errorf("feedback: %w", orchestrator.ErrDuplicateFeedback), codes.AlreadyExists},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		if got := FeedbackCode(tc.err); got != tc.want {
			t.Errorf("FeedbackCode(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestStructConversion(t *testing.T) {
	s, err := toStruct(orchestrator.DecisionRequest{Domain: "blog", Action: 4})
	require.NoError(t, err)
	assert.Equal(t, "blog", s.Fields["domain"].GetStringValue())
	assert.Equal(t, 4.0, s.Fields["action"].GetNumberValue())

	var back orchestrator.DecisionRequest
	require.NoError(t, fromStruct(s, &back))
	assert.Equal(t, "blog", back.Domain)
	assert.Equal(t, 4, layout.ParseAction(back.Action))

	require.NoError(t, fromStruct(nil, &back))
}
