// Package bridge is the process boundary: a line-delimited JSON
// request/response loop over an injected reader and writer. Every inbound
// line produces exactly one outbound line; malformed input never terminates
// the loop.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pixelink/internal/runtime"
	"pixelink/internal/types"
)

// Bridge actions.
const (
	ActionProcessInput      = "process_input"
	ActionCaptureVoiceInput = "capture_voice_input"
	ActionUpdatePreferences = "update_preferences"
	ActionGetState          = "get_state"
	ActionShutdown          = "shutdown"
)

// maxLineBytes bounds a single request line.
const maxLineBytes = 1 << 20

// Transcriber captures one utterance of speech and returns its transcript.
// Wiring one in is optional; without it voice capture reports unavailable.
type Transcriber interface {
	Transcribe(ctx context.Context) (string, error)
}

// Request is one inbound line.
type Request struct {
	Action            string          `json:"action"`
	Text              string          `json:"text,omitempty"`
	Source            string          `json:"source,omitempty"`
	RequestID         string          `json:"request_id,omitempty"`
	Speed             *float64        `json:"speed,omitempty"`
	PermissionProfile map[string]bool `json:"permission_profile,omitempty"`
}

// Bridge runs the request loop against a Runtime.
type Bridge struct {
	rt          *runtime.Runtime
	transcriber Transcriber
	logger      *zap.Logger

	mu  sync.Mutex
	out *json.Encoder
}

// New builds a bridge writing responses to w. transcriber may be nil.
func New(rt *runtime.Runtime, w io.Writer, transcriber Transcriber, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		rt:          rt,
		transcriber: transcriber,
		logger:      logger,
		out:         json.NewEncoder(w),
	}
}

// Run reads newline-delimited requests from r until EOF, a shutdown request,
// or ctx cancellation. A ready banner is emitted before the first read.
func (b *Bridge) Run(ctx context.Context, r io.Reader) error {
	b.write(types.Response{Status: types.StatusReady, Message: "pixelink bridge ready"})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			b.write(b.errorResponse("", "INVALID_JSON", "request is not valid JSON", err))
			continue
		}

		resp, shutdown := b.handle(ctx, req)
		b.write(resp)
		if shutdown {
			return nil
		}
	}
	return scanner.Err()
}

// handle dispatches one request. The second return is true for shutdown.
func (b *Bridge) handle(ctx context.Context, req Request) (types.Response, bool) {
	switch req.Action {
	case ActionProcessInput:
		source := req.Source
		if source == "" {
			source = "text"
		}
		return b.rt.HandleInput(ctx, req.Text, source, req.RequestID), false

	case ActionCaptureVoiceInput:
		return b.captureVoice(ctx, req), false

	case ActionUpdatePreferences:
		b.rt.SetPreferences(req.Speed, req.PermissionProfile)
		resp := types.Response{Status: types.StatusUpdated, Message: "Preferences updated.", RequestID: req.RequestID}
		b.fillState(&resp)
		return resp, false

	case ActionGetState:
		resp := types.Response{Status: types.StatusState, RequestID: req.RequestID}
		b.fillState(&resp)
		return resp, false

	case ActionShutdown:
		return types.Response{Status: types.StatusBye, Message: "Shutting down.", RequestID: req.RequestID}, true

	default:
		return b.errorResponse(req.RequestID, "UNKNOWN_ACTION",
			fmt.Sprintf("unsupported action %q", req.Action), nil), false
	}
}

// captureVoice records one utterance and feeds the transcript through the
// pipeline as a voice-source request.
func (b *Bridge) captureVoice(ctx context.Context, req Request) types.Response {
	if b.transcriber == nil {
		return b.errorResponse(req.RequestID, "VOICE_INPUT_UNAVAILABLE", "no speech engine is configured", nil)
	}
	transcript, err := b.transcriber.Transcribe(ctx)
	if err != nil {
		return b.errorResponse(req.RequestID, "VOICE_CAPTURE_FAILED", "speech capture failed", err)
	}
	resp := b.rt.HandleInput(ctx, transcript, "voice", req.RequestID)
	resp.Transcript = transcript
	return resp
}

func (b *Bridge) errorResponse(requestID, code, message string, cause error) types.Response {
	detail := &types.ErrorDetail{Code: code}
	if cause != nil {
		detail.Details = cause.Error()
	}
	resp := types.Response{
		Status:    types.StatusError,
		Message:   message,
		RequestID: requestID,
		Error:     detail,
	}
	b.fillState(&resp)
	return resp
}

func (b *Bridge) fillState(resp *types.Response) {
	snap := b.rt.Snapshot()
	resp.LastApp = snap.LastApp
	resp.HistoryCount = snap.HistoryCount
	resp.PendingConfirmation = snap.PendingConfirmation
	resp.PendingClarification = snap.PendingClarification
	if resp.ClarificationPrompt == "" {
		resp.ClarificationPrompt = snap.ClarificationPrompt
	}
}

func (b *Bridge) write(resp types.Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.out.Encode(resp); err != nil {
		b.logger.Error("response write failed", zap.Error(err))
	}
}
