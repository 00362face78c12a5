package redis

import (
	"context"
	"errors"

	rd "github.com/redis/go-redis/v9"
	"github.com/mohitkumar/funnel/model"
	"github.com/mohitkumar/funnel/persistence"
	"github.com/mohitkumar/funnel/util"
)

const CHANNEL_CONFIG_KEY string = "CHANNEL_CONFIG"

var _ persistence.ChannelConfigDao = new(redisChannelConfigDao)

type redisChannelConfigDao struct {
	*baseDao
	encoderDecoder util.EncoderDecoder[model.ChannelConfig]
}

func NewRedisChannelConfigDao(conf Config) *redisChannelConfigDao {
	return &redisChannelConfigDao{
		baseDao:        newBaseDao(conf),
		encoderDecoder: util.NewJsonEncoderDecoder[model.ChannelConfig](),
	}
}

func (r *redisChannelConfigDao) SaveChannelConfig(ctx context.Context, cfg model.ChannelConfig) error {
	data, err := r.encoderDecoder.Encode(cfg)
	if err != nil {
		return err
	}
	if err := r.redisClient.Set(ctx, r.getNamespaceKey(CHANNEL_CONFIG_KEY), data, 0).Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisChannelConfigDao) GetChannelConfig(ctx context.Context) (*model.ChannelConfig, error) {
	val, err := r.redisClient.Get(ctx, r.getNamespaceKey(CHANNEL_CONFIG_KEY)).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, nil
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return r.encoderDecoder.Decode([]byte(val))
}
