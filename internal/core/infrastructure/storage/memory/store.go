// Package memory 提供基于BigCache的插桩字节码缓存
//
// 相同程序在相同燃料预算下的插桩结果是确定的，缓存可以跳过重复的字节码改写。
// 缓存只保存字节，不保存任何执行状态，命中与否不影响执行结果。
// 条目以 snappy 压缩存放，使较大的模块也能放进单个 bigcache 条目。
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"

	"github.com/allegro/bigcache/v3"
	"github.com/golang/snappy"

	runtimeconfig "github.com/weisyn/policyvm/internal/config/runtime"
	"github.com/weisyn/policyvm/pkg/interfaces/infrastructure/log"
)

// ErrClosed 缓存已关闭
var ErrClosed = errors.New("bytecode cache closed")

// Store 插桩字节码缓存
type Store struct {
	cache  *bigcache.BigCache
	logger log.Logger
	mutex  sync.RWMutex
	closed bool
}

// New 创建字节码缓存
func New(opts runtimeconfig.BytecodeCacheOptions, logger log.Logger) (*Store, error) {
	cfg := bigcache.DefaultConfig(opts.LifeWindow)
	cfg.Shards = 16
	cfg.CleanWindow = opts.LifeWindow / 2
	cfg.HardMaxCacheSize = opts.HardMaxCacheSize
	cfg.MaxEntrySize = 64 * 1024
	cfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debugf("字节码缓存已创建: life_window=%s, hard_max=%dMB", opts.LifeWindow, opts.HardMaxCacheSize)
	}
	return &Store{cache: cache, logger: logger}, nil
}

// Key 计算缓存键：sha256(程序) + 燃料预算
func Key(program []byte, fuel uint64) string {
	sum := sha256.Sum256(program)
	return hex.EncodeToString(sum[:]) + ":" + strconv.FormatUint(fuel, 10)
}

// Get 获取缓存值，返回解压后的新切片
func (s *Store) Get(key string) ([]byte, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.closed {
		return nil, false
	}

	value, err := s.cache.Get(key)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) && s.logger != nil {
			s.logger.Warnf("获取字节码缓存[%s]失败: %v", key, err)
		}
		return nil, false
	}
	decoded, err := snappy.Decode(nil, value)
	if err != nil {
		if s.logger != nil {
			s.logger.Warnf("字节码缓存[%s]解压失败: %v", key, err)
		}
		_ = s.cache.Delete(key)
		return nil, false
	}
	return decoded, true
}

// Set 写入缓存值
func (s *Store) Set(key string, value []byte) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.cache.Set(key, snappy.Encode(nil, value)); err != nil {
		if s.logger != nil {
			s.logger.Warnf("写入字节码缓存[%s]失败: %v", key, err)
		}
		return err
	}
	return nil
}

// Len 缓存条目数
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.closed {
		return 0
	}
	return s.cache.Len()
}

// Close 关闭缓存并释放资源，重复关闭无副作用
func (s *Store) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.cache.Close()
}
