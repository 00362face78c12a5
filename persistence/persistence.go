package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohitkumar/funnel/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

var ErrFlowNotFound = errors.New("flow not found")
var ErrFlowExists = errors.New("flow already exists")
var ErrSessionNotFound = errors.New("session not found")

func FlowNotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrFlowNotFound, id)
}

type FlowDao interface {
	Create(ctx context.Context, fl model.Flow) (*model.Flow, error)
	Get(ctx context.Context, id string) (*model.Flow, error)
	Update(ctx context.Context, id string, fl model.Flow) (*model.Flow, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Flow, error)
}

// SessionDao keeps the state of runs suspended on a reply. A recipient has at
// most one session per flow.
type SessionDao interface {
	SaveSession(ctx context.Context, session model.Session) error
	GetSession(ctx context.Context, flowId string, recipient string) (*model.Session, error)
	DeleteSession(ctx context.Context, flowId string, recipient string) error
	GetSessionsByRecipient(ctx context.Context, recipient string) ([]model.Session, error)
}

// ChannelConfigDao returns a nil configuration when none was saved.
type ChannelConfigDao interface {
	SaveChannelConfig(ctx context.Context, cfg model.ChannelConfig) error
	GetChannelConfig(ctx context.Context) (*model.ChannelConfig, error)
}

type StorageType string

const REDIS_STORAGE StorageType = "redis"
const MEMORY_STORAGE StorageType = "memory"
