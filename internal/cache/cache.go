package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"o2oprofit/internal/calculator"
)

// Key 计算结果缓存键：数据范围 + 完整口径指纹
type Key struct {
	StoreName   string
	Channel     string
	From        string
	To          string
	Fingerprint string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", k.StoreName, k.Channel, k.From, k.To, k.Fingerprint)
}

// ResultCache 计算结果缓存
//
// 相同数据范围与口径的重复请求直接复用结果；导入新数据后整体失效。
type ResultCache struct {
	c *gocache.Cache
}

// New 创建缓存，ttl<=0 时永不过期
func New(ttl time.Duration) *ResultCache {
	expiration := ttl
	cleanup := 2 * ttl
	if ttl <= 0 {
		expiration = gocache.NoExpiration
		cleanup = 10 * time.Minute
	}
	return &ResultCache{c: gocache.New(expiration, cleanup)}
}

// Get 读取缓存，返回副本
func (r *ResultCache) Get(key Key) (*calculator.Result, bool) {
	v, found := r.c.Get(key.String())
	if !found {
		return nil, false
	}
	res, ok := v.(*calculator.Result)
	if !ok {
		return nil, false
	}
	return res.Clone(), true
}

// Set 写入缓存；保存副本，调用方后续修改不影响缓存
func (r *ResultCache) Set(key Key, res *calculator.Result) {
	r.c.Set(key.String(), res.Clone(), gocache.DefaultExpiration)
}

// Invalidate 清空全部缓存
func (r *ResultCache) Invalidate() {
	r.c.Flush()
}

// Len 当前缓存条目数
func (r *ResultCache) Len() int {
	return r.c.ItemCount()
}
