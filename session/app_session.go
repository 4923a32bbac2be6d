// Package session keeps login sessions in Redis.
//
// Each session is a hash {uid, iat, exp} expiring with the session; every
// user also has a set of live session ids so "log out everywhere" can find them.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned for unknown or expired tokens.
var ErrNoSession = errors.New("session not found")

type AppSession struct {
	UserID    string `redis:"uid"`
	IssuedAt  int64  `redis:"iat"`
	ExpiresAt int64  `redis:"exp"`
}

// live: hash 存在且未到 exp（Redis 过期有延迟）
func (as AppSession) live(now time.Time) bool {
	return as.UserID != "" && now.Unix() < as.ExpiresAt
}

// keyspace 统一 Redis key 命名
type keyspace string

func (k keyspace) session(id string) string    { return string(k) + ":sess:" + id }
func (k keyspace) userIndex(uid string) string { return string(k) + ":user_sessions:" + uid }

// AppSessionStore 业务会话：token → 用户，带 TTL
type AppSessionStore struct {
	rdb  redis.UniversalClient
	ttl  time.Duration
	keys keyspace
	now  func() time.Time
}

func NewAppSessionStore(rdb redis.UniversalClient, ttl time.Duration) *AppSessionStore {
	return &AppSessionStore{rdb: rdb, ttl: ttl, keys: "equiplend", now: time.Now}
}

func (s *AppSessionStore) TTL() time.Duration { return s.ttl }

func (s *AppSessionStore) Create(ctx context.Context, id, userID string) error {
	now := s.now()
	sk, uk := s.keys.session(id), s.keys.userIndex(userID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, sk, AppSession{UserID: userID, IssuedAt: now.Unix(), ExpiresAt: now.Add(s.ttl).Unix()})
		p.Expire(ctx, sk, s.ttl)
		p.SAdd(ctx, uk, id)
		// 索引与最新的会话同生命周期
		p.Expire(ctx, uk, s.ttl)
		return nil
	})
	return err
}

func (s *AppSessionStore) Get(ctx context.Context, id string) (*AppSession, error) {
	var as AppSession
	if err := s.rdb.HGetAll(ctx, s.keys.session(id)).Scan(&as); err != nil {
		return nil, err
	}
	if !as.live(s.now()) {
		return nil, ErrNoSession
	}
	return &as, nil
}

// Delete 删除单个会话并从用户索引移除；不存在时不报错
func (s *AppSessionStore) Delete(ctx context.Context, id string) error {
	sk := s.keys.session(id)
	uid, err := s.rdb.HGet(ctx, sk, "uid").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sk)
		if uid != "" {
			p.SRem(ctx, s.keys.userIndex(uid), id)
		}
		return nil
	})
	return err
}

// RevokeAllForUser 撤销该用户的所有会话
func (s *AppSessionStore) RevokeAllForUser(ctx context.Context, userID string) error {
	uk := s.keys.userIndex(userID)
	ids, err := s.rdb.SMembers(ctx, uk).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	doomed := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		doomed = append(doomed, s.keys.session(id))
	}
	doomed = append(doomed, uk)
	return s.rdb.Del(ctx, doomed...).Err()
}
