package errors

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// ==========================
// Fakes
// ==========================

type fakeGateway struct {
	pb.GatewayClient
	err    error
	failed []*pb.FailJobRequest
	thrown []*pb.ThrowErrorRequest
}

func (g *fakeGateway) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.failed = append(g.failed, in)
	return &pb.FailJobResponse{}, g.err
}

func (g *fakeGateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.thrown = append(g.thrown, in)
	return &pb.ThrowErrorResponse{}, g.err
}

func noRetry(context.Context, error) bool { return false }

type fakeJobClient struct{ gw *fakeGateway }

func (c fakeJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gw, noRetry)
}

func (c fakeJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gw, noRetry)
}

func (c fakeJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gw, noRetry)
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []map[string]interface{}
	msgs    []string
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
	l.entries = append(l.entries, fields)
}

func (l *recordingLogger) commandFailures() []map[string]interface{} {
	var out []map[string]interface{}
	for i, msg := range l.msgs {
		if msg == "failed to send job command" {
			out = append(out, l.entries[i])
		}
	}
	return out
}

func testJob(retries int32) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: "deliver-notification", Retries: retries}}
}

// ==========================
// HandleJobError
// ==========================

func TestHandleJobError_Commands(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		retries    int32
		wantFailed bool
		wantCode   string
	}{
		{"technical error is retried", NewDatabaseError("insert", stderrors.New("timeout")), 3, true, ""},
		{"business error is thrown", NewNotFoundError("notification", "n-1"), 3, false, string(ErrCodeNotFound)},
		{"no retries left is thrown", NewDatabaseError("insert", stderrors.New("timeout")), 0, false, string(ErrCodeDatabase)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{}
			log := &recordingLogger{}

			NewErrorHandler(log).HandleJobError(context.Background(), fakeJobClient{gw: gw}, testJob(tt.retries), tt.err)

			if tt.wantFailed {
				require.Len(t, gw.failed, 1)
				assert.Empty(t, gw.thrown)
				assert.Equal(t, int64(42), gw.failed[0].JobKey)
				assert.Less(t, gw.failed[0].Retries, tt.retries)
			} else {
				require.Len(t, gw.thrown, 1)
				assert.Empty(t, gw.failed)
				assert.Equal(t, tt.wantCode, gw.thrown[0].ErrorCode)
			}
			assert.Empty(t, log.commandFailures())
		})
	}
}

func TestHandleJobError_LogsRejectedCommands(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCommand string
	}{
		{"fail command", NewDatabaseError("insert", stderrors.New("timeout")), "fail"},
		{"throw command", NewNotFoundError("notification", "n-1"), "throw_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{err: stderrors.New("NOT_FOUND: job 42 not activated")}
			log := &recordingLogger{}

			NewErrorHandler(log).HandleJobError(context.Background(), fakeJobClient{gw: gw}, testJob(3), tt.err)

			failures := log.commandFailures()
			require.Len(t, failures, 1)
			assert.Equal(t, tt.wantCommand, failures[0]["command"])
			assert.Equal(t, int64(42), failures[0]["jobKey"])
			assert.Equal(t, gw.err, failures[0]["error"])
		})
	}
}
