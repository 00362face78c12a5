package redis

import (
	"context"
	"errors"
	"sort"

	rd "github.com/redis/go-redis/v9"
	"github.com/mohitkumar/funnel/logger"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	"github.com/mohitkumar/funnel/util"
	"go.uber.org/zap"
)

const FLOW_KEY string = "FLOW"

var _ persistence.FlowDao = new(redisFlowDao)

type redisFlowDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.Flow]
}

func NewRedisFlowDao(conf Config) *redisFlowDao {
	return &redisFlowDao{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.Flow](),
	}
}

func (r *redisFlowDao) Create(ctx context.Context, fl model.Flow) (*model.Flow, error) {
	key := r.getNamespaceKey(FLOW_KEY)
	data, err := r.encoderDecoder.Encode(fl)
	if err != nil {
		return nil, err
	}
	created, err := r.redisClient.HSetNX(ctx, key, fl.Id, string(data)).Result()
	if err != nil {
		logger.Error("error in creating flow", zap.String("id", fl.Id), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	if !created {
		return nil, persistence.ErrFlowExists
	}
	return &fl, nil
}

func (r *redisFlowDao) Get(ctx context.Context, id string) (*model.Flow, error) {
	key := r.getNamespaceKey(FLOW_KEY)
	val, err := r.redisClient.HGet(ctx, key, id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, persistence.FlowNotFound(id)
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return r.encoderDecoder.Decode([]byte(val))
}

func (r *redisFlowDao) Update(ctx context.Context, id string, fl model.Flow) (*model.Flow, error) {
	key := r.getNamespaceKey(FLOW_KEY)
	exists, err := r.redisClient.HExists(ctx, key, id).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	if !exists {
		return nil, persistence.FlowNotFound(id)
	}
	fl.Id = id
	data, err := r.encoderDecoder.Encode(fl)
	if err != nil {
		return nil, err
	}
	if err := r.redisClient.HSet(ctx, key, id, string(data)).Err(); err != nil {
		logger.Error("error in updating flow", zap.String("id", id), zap.Error(err))
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return &fl, nil
}

func (r *redisFlowDao) Delete(ctx context.Context, id string) error {
	key := r.getNamespaceKey(FLOW_KEY)
	n, err := r.redisClient.HDel(ctx, key, id).Result()
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	if n == 0 {
		return persistence.FlowNotFound(id)
	}
	return nil
}

// List returns every stored flow, most recently updated first.
func (r *redisFlowDao) List(ctx context.Context) ([]model.Flow, error) {
	key := r.getNamespaceKey(FLOW_KEY)
	values, err := r.redisClient.HVals(ctx, key).Result()
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	flows := make([]model.Flow, 0, len(values))
	for _, v := range values {
		fl, err := r.encoderDecoder.Decode([]byte(v))
		if err != nil {
			logger.Error("skipping undecodable flow", zap.Error(err))
			continue
		}
		flows = append(flows, *fl)
	}
	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].UpdatedAt.After(flows[j].UpdatedAt)
	})
	return flows, nil
}
