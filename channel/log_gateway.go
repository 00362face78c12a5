package channel

import (
	"context"
	"sync"

	"github.com/mohitkumar/funnel/logger"
	"go.uber.org/zap"
)

var _ Gateway = new(LogGateway)

// LogGateway records messages instead of delivering them. It is the default
// for local development and is what tests assert against.
type LogGateway struct {
	mu   sync.Mutex
	sent []Message
}

func NewLogGateway() *LogGateway {
	return &LogGateway{}
}

func (g *LogGateway) SendMessage(ctx context.Context, msg Message) (bool, error) {
	g.mu.Lock()
	g.sent = append(g.sent, msg)
	g.mu.Unlock()
	logger.Info("message sent", zap.String("to", msg.To), zap.String("flowId", msg.FlowId), zap.String("message", msg.Message))
	return true, nil
}

func (g *LogGateway) Sent() []Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Message, len(g.sent))
	copy(out, g.sent)
	return out
}
