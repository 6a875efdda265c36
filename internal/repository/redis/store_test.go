package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/gita-knowledge-api/pkg/schema/services"
)

func TestPing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG")))

	assert.NoError(t, NewStoreWithClient(c, 0).Ping(context.Background()))
}

func TestGet_Hit(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "k")).Return(mock.Result(mock.RedisBlobString("\x01\x02")))

	data, err := NewStoreWithClient(c, 0).Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)
}

func TestGet_MissMapsToCacheMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "k")).Return(mock.Result(mock.RedisNil()))

	_, err := NewStoreWithClient(c, 0).Get(context.Background(), "k")
	assert.ErrorIs(t, err, services.ErrCacheMiss)
}

func TestGet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().Do(gomock.Any(), mock.Match("GET", "k")).Return(mock.ErrorResult(errors.New("conn reset")))

	_, err := NewStoreWithClient(c, 0).Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrCacheMiss)
}

func TestSet_WithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().Do(gomock.Any(), mock.Match("SET", "k", "v", "EX", "60")).Return(mock.Result(mock.RedisString("OK")))

	assert.NoError(t, NewStoreWithClient(c, time.Minute).Set(context.Background(), "k", []byte("v")))
}

func TestSet_NoTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().Do(gomock.Any(), mock.Match("SET", "k", "v")).Return(mock.Result(mock.RedisString("OK")))

	assert.NoError(t, NewStoreWithClient(c, 0).Set(context.Background(), "k", []byte("v")))
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	_, err := NewStore(Config{})
	assert.Error(t, err)
}

func TestDeletePrefix_FollowsCursor(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("SCAN", "0", "MATCH", "gita:audio:s1:*", "COUNT", "100")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisBlobString("17"),
				mock.RedisArray(mock.RedisBlobString("gita:audio:s1:a"), mock.RedisBlobString("gita:audio:s1:b")),
			))),
		c.EXPECT().Do(gomock.Any(), mock.Match("DEL", "gita:audio:s1:a", "gita:audio:s1:b")).
			Return(mock.Result(mock.RedisInt64(2))),
		c.EXPECT().Do(gomock.Any(), mock.Match("SCAN", "17", "MATCH", "gita:audio:s1:*", "COUNT", "100")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisBlobString("0"),
				mock.RedisArray(),
			))),
	)

	assert.NoError(t, NewStoreWithClient(c, 0).DeletePrefix(context.Background(), "gita:audio:s1:"))
}

func TestDeletePrefix_EscapesGlob(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().Do(gomock.Any(), mock.Match("SCAN", "0", "MATCH", `gita:audio:\*:*`, "COUNT", "100")).
		Return(mock.Result(mock.RedisArray(mock.RedisBlobString("0"), mock.RedisArray())))

	assert.NoError(t, NewStoreWithClient(c, 0).DeletePrefix(context.Background(), "gita:audio:*:"))
}

func TestDeletePrefix_ScanError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().Do(gomock.Any(), gomock.Any()).Return(mock.ErrorResult(errors.New("conn reset")))

	assert.Error(t, NewStoreWithClient(c, 0).DeletePrefix(context.Background(), "p:"))
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `a\*b\?c\[d\]e\\f`, escapeGlob(`a*b?c[d]e\f`))
	assert.Equal(t, "gita:audio:6f1c2b7e:", escapeGlob("gita:audio:6f1c2b7e:"))
}
