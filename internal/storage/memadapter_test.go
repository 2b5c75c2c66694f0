package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/lunatv/internal/adapter"
	"github.com/user/lunatv/internal/config"
)

// memAdapter 测试用内存适配器
// 带操作计数与故障注入，便于断言调用次数和重试行为
type memAdapter struct {
	mu      sync.Mutex
	strings map[string]string
	hashes  map[string]map[string]string
	lists   map[string][]string
	sets    map[string]map[string]bool
	zsets   map[string]map[string]float64

	calls     map[string]int
	failTimes map[string]int // op -> 剩余注入失败次数
	failErr   error
	sleepOn   map[string]time.Duration
}

var _ adapter.Adapter = (*memAdapter)(nil)

func newMemAdapter() *memAdapter {
	return &memAdapter{
		strings:   make(map[string]string),
		hashes:    make(map[string]map[string]string),
		lists:     make(map[string][]string),
		sets:      make(map[string]map[string]bool),
		zsets:     make(map[string]map[string]float64),
		calls:     make(map[string]int),
		failTimes: make(map[string]int),
		sleepOn:   make(map[string]time.Duration),
	}
}

// newTestStorage 组装一个跑在内存适配器上的门面（退避缩短到毫秒级）
func newTestStorage() (*KVStorage, *memAdapter) {
	mem := newMemAdapter()
	cfg := &config.Config{
		StorageType:     config.StorageRedis,
		OwnerUsername:   "admin",
		MaxPlayRecords:  100,
		PlayRecordSlack: 10,
		UserCacheTTL:    time.Hour,
		OwnerCacheTTL:   time.Minute,
	}
	s := &KVStorage{
		adapter: newRetryAdapter(mem, nil, 3, time.Millisecond),
		cfg:     cfg,
		caches:  newStoreCaches(cfg),
		locks:   newLockRegistry(),
	}
	return s, mem
}

// enter 记录调用并执行注入的延迟 / 故障
func (m *memAdapter) enter(op string) error {
	m.mu.Lock()
	m.calls[op]++
	delay := m.sleepOn[op]
	fail := false
	if m.failTimes[op] != 0 {
		fail = true
		if m.failTimes[op] > 0 {
			m.failTimes[op]--
		}
	}
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if fail {
		return m.failErr
	}
	return nil
}

func (m *memAdapter) callCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// failOp 注入故障：times < 0 表示一直失败
func (m *memAdapter) failOp(op string, times int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTimes[op] = times
	m.failErr = err
}

// allKeys 当前所有顶层键（断言删除完整性用）
func (m *memAdapter) allKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.strings {
		out = append(out, k)
	}
	for k, h := range m.hashes {
		if len(h) > 0 {
			out = append(out, k)
		}
	}
	for k, l := range m.lists {
		if len(l) > 0 {
			out = append(out, k)
		}
	}
	for k, s := range m.sets {
		if len(s) > 0 {
			out = append(out, k)
		}
	}
	for k, z := range m.zsets {
		if len(z) > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (m *memAdapter) Ping(ctx context.Context) error {
	return m.enter("PING")
}

func (m *memAdapter) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := m.enter("HSET"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for f, v := range fields {
		h[f] = v
	}
	return nil
}

func (m *memAdapter) HGet(ctx context.Context, key, field string) (string, error) {
	if err := m.enter("HGET"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.hashes[key][field]
	if !ok {
		return "", adapter.ErrNil
	}
	return v, nil
}

func (m *memAdapter) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := m.enter("HGETALL"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hashes[key]))
	for f, v := range m.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (m *memAdapter) HDel(ctx context.Context, key string, fields ...string) error {
	if err := m.enter("HDEL"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fields {
		delete(m.hashes[key], f)
	}
	return nil
}

func (m *memAdapter) Set(ctx context.Context, key, value string) error {
	if err := m.enter("SET"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings[key] = value
	return nil
}

func (m *memAdapter) Get(ctx context.Context, key string) (string, error) {
	if err := m.enter("GET"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.strings[key]
	if !ok {
		return "", adapter.ErrNil
	}
	return v, nil
}

func (m *memAdapter) Del(ctx context.Context, keys ...string) error {
	if err := m.enter("DEL"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.strings, k)
		delete(m.hashes, k)
		delete(m.lists, k)
		delete(m.sets, k)
		delete(m.zsets, k)
	}
	return nil
}

func (m *memAdapter) Exists(ctx context.Context, key string) (bool, error) {
	if err := m.enter("EXISTS"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.strings[key]; ok {
		return true, nil
	}
	if h, ok := m.hashes[key]; ok && len(h) > 0 {
		return true, nil
	}
	return false, nil
}

func (m *memAdapter) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := m.enter("KEYS"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var out []string
	for k := range m.strings {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memAdapter) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	if err := m.enter("MGET"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*string, len(keys))
	for i, k := range keys {
		if v, ok := m.strings[k]; ok {
			s := v
			out[i] = &s
		}
	}
	return out, nil
}

func (m *memAdapter) LPush(ctx context.Context, key string, values ...string) error {
	if err := m.enter("LPUSH"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range values {
		m.lists[key] = append([]string{v}, m.lists[key]...)
	}
	return nil
}

func (m *memAdapter) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := m.enter("LRANGE"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lists[key]
	n := int64(len(l))
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = n + start
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil, nil
	}
	out := make([]string, 0, stop-start+1)
	out = append(out, l[start:stop+1]...)
	return out, nil
}

func (m *memAdapter) LSet(ctx context.Context, key string, index int64, value string) error {
	if err := m.enter("LSET"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lists[key]
	n := int64(len(l))
	if index < 0 {
		index = n + index
	}
	if index < 0 || index >= n {
		return errors.New("index out of range")
	}
	l[index] = value
	return nil
}

func (m *memAdapter) LRem(ctx context.Context, key string, count int64, value string) error {
	if err := m.enter("LREM"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, v := range m.lists[key] {
		if v == value {
			continue
		}
		out = append(out, v)
	}
	m.lists[key] = out
	return nil
}

func (m *memAdapter) LTrim(ctx context.Context, key string, start, stop int64) error {
	if err := m.enter("LTRIM"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lists[key]
	n := int64(len(l))
	if stop < 0 {
		stop = n + stop
	}
	if stop >= n {
		stop = n - 1
	}
	if start < 0 {
		start = 0
	}
	if start > stop || n == 0 {
		m.lists[key] = nil
		return nil
	}
	m.lists[key] = l[start : stop+1]
	return nil
}

func (m *memAdapter) SAdd(ctx context.Context, key string, members ...string) error {
	if err := m.enter("SADD"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]bool)
		m.sets[key] = set
	}
	for _, mb := range members {
		set[mb] = true
	}
	return nil
}

func (m *memAdapter) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := m.enter("SMEMBERS"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for mb := range m.sets[key] {
		out = append(out, mb)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memAdapter) SRem(ctx context.Context, key string, members ...string) error {
	if err := m.enter("SREM"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mb := range members {
		delete(m.sets[key], mb)
	}
	return nil
}

func (m *memAdapter) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if err := m.enter("ZADD"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	z, ok := m.zsets[key]
	if !ok {
		z = make(map[string]float64)
		m.zsets[key] = z
	}
	z[member] = score
	return nil
}

func (m *memAdapter) zsorted(key string) []string {
	type zm struct {
		member string
		score  float64
	}
	var members []zm
	for mb, sc := range m.zsets[key] {
		members = append(members, zm{mb, sc})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].score != members[j].score {
			return members[i].score < members[j].score
		}
		return members[i].member < members[j].member
	})
	out := make([]string, len(members))
	for i, mb := range members {
		out[i] = mb.member
	}
	return out
}

func (m *memAdapter) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := m.enter("ZRANGE"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.zsorted(key)
	n := int64(len(all))
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil, nil
	}
	return all[start : stop+1], nil
}

func (m *memAdapter) ZRank(ctx context.Context, key, member string) (int64, error) {
	if err := m.enter("ZRANK"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, mb := range m.zsorted(key) {
		if mb == member {
			return int64(i), nil
		}
	}
	return 0, adapter.ErrNil
}

func (m *memAdapter) ZCard(ctx context.Context, key string) (int64, error) {
	if err := m.enter("ZCARD"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.zsets[key])), nil
}

func (m *memAdapter) ZRem(ctx context.Context, key string, members ...string) error {
	if err := m.enter("ZREM"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mb := range members {
		delete(m.zsets[key], mb)
	}
	return nil
}
