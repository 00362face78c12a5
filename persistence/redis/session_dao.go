package redis

import (
	"context"
	"errors"
	"fmt"

	rd "github.com/redis/go-redis/v9"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	"github.com/mohitkumar/funnel/util"
)

const SESSION_KEY string = "SESSION"

var _ persistence.SessionDao = new(redisSessionDao)

type redisSessionDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Session]
}

func NewRedisSessionDao(conf Config) *redisSessionDao {
	return &redisSessionDao{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Session](),
	}
}

func (r *redisSessionDao) SaveSession(ctx context.Context, session model.Session) error {
	key := r.getNamespaceKey(SESSION_KEY, session.Recipient)
	data, err := r.encoderDecoder.Encode(session)
	if err != nil {
		return err
	}
	if err := r.redisClient.HSet(ctx, key, session.FlowId, string(data)).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisSessionDao) GetSession(ctx context.Context, flowId string, recipient string) (*model.Session, error) {
	key := r.getNamespaceKey(SESSION_KEY, recipient)
	val, err := r.redisClient.HGet(ctx, key, flowId).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, fmt.Errorf("%w: flow %s recipient %s", persistence.ErrSessionNotFound, flowId, recipient)
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return r.encoderDecoder.Decode([]byte(val))
}

func (r *redisSessionDao) DeleteSession(ctx context.Context, flowId string, recipient string) error {
	key := r.getNamespaceKey(SESSION_KEY, recipient)
	if err := r.redisClient.HDel(ctx, key, flowId).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisSessionDao) GetSessionsByRecipient(ctx context.Context, recipient string) ([]model.Session, error) {
	key := r.getNamespaceKey(SESSION_KEY, recipient)
	values, err := r.redisClient.HVals(ctx, key).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	sessions := make([]model.Session, 0, len(values))
	for _, v := range values {
		session, err := r.encoderDecoder.Decode([]byte(v))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}
