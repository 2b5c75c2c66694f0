package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// upstashAdapter 基于 HTTP REST 的自动序列化适配器
//
// 这类后端在读取时可能把 JSON 形态的值解析成对象返回，
// 所以所有结果都要经过 normalize 重新字符串化，
// 保证与 redisAdapter 完全一致的"字符串进、字符串出"契约。
type upstashAdapter struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewUpstashAdapter 创建 HTTP REST 适配器
// baseURL 缺失不在这里报错，推迟到首次请求（配置错误属于首次使用时的致命错误）
func NewUpstashAdapter(baseURL, token string) Adapter {
	return &upstashAdapter{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (a *upstashAdapter) Ping(ctx context.Context) error {
	_, err := a.do(ctx, "PING")
	return err
}

// restResponse REST 响应体
type restResponse struct {
	Result interface{} `json:"result"`
	Error  string      `json:"error"`
}

// do 发送一条命令（JSON 数组形式 POST 到服务端）
func (a *upstashAdapter) do(ctx context.Context, args ...interface{}) (interface{}, error) {
	if a.baseURL == "" {
		return nil, fmt.Errorf("upstash: 缺少连接地址（UPSTASH_URL 未配置）")
	}

	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("upstash: 编码命令失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upstash: 创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upstash: 读取响应失败: %w", err)
	}

	var out restResponse
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber() // 数字保持原样，避免 float64 精度/格式丢失
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("upstash: 解析响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK || out.Error != "" {
		return nil, fmt.Errorf("upstash: 命令失败（状态码 %d）: %s", resp.StatusCode, out.Error)
	}
	return out.Result, nil
}

// normalizeString 把可能被后端自动解析过的结果还原成字符串
// nil 统一归一成 ErrNil，而不是空字符串
func normalizeString(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", ErrNil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		// 对象 / 数组：重新序列化成 JSON 字符串
		b, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("upstash: 结果重新序列化失败: %w", err)
		}
		return string(b), nil
	}
}

// normalizeSlice 归一字符串数组结果
func normalizeSlice(v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("upstash: 预期数组结果，实际为 %T", v)
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, err := normalizeString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// normalizeCount 归一计数结果
func normalizeCount(v interface{}) (int64, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("upstash: 预期数字结果，实际为 %T", v)
	}
	return n.Int64()
}

func (a *upstashAdapter) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := []interface{}{"HSET", key}
	for f, v := range fields {
		args = append(args, f, v)
	}
	_, err := a.do(ctx, args...)
	return err
}

func (a *upstashAdapter) HGet(ctx context.Context, key, field string) (string, error) {
	res, err := a.do(ctx, "HGET", key, field)
	if err != nil {
		return "", err
	}
	return normalizeString(res)
}

func (a *upstashAdapter) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	res, err := a.do(ctx, "HGETALL", key)
	if err != nil {
		return nil, err
	}
	// 扁平数组 [field1, value1, field2, value2, ...]
	flat, err := normalizeSlice(res)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		out[flat[i]] = flat[i+1]
	}
	return out, nil
}

func (a *upstashAdapter) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	args := []interface{}{"HDEL", key}
	for _, f := range fields {
		args = append(args, f)
	}
	_, err := a.do(ctx, args...)
	return err
}

func (a *upstashAdapter) Set(ctx context.Context, key, value string) error {
	_, err := a.do(ctx, "SET", key, value)
	return err
}

func (a *upstashAdapter) Get(ctx context.Context, key string) (string, error) {
	res, err := a.do(ctx, "GET", key)
	if err != nil {
		return "", err
	}
	return normalizeString(res)
}

func (a *upstashAdapter) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := []interface{}{"DEL"}
	for _, k := range keys {
		args = append(args, k)
	}
	_, err := a.do(ctx, args...)
	return err
}

func (a *upstashAdapter) Exists(ctx context.Context, key string) (bool, error) {
	res, err := a.do(ctx, "EXISTS", key)
	if err != nil {
		return false, err
	}
	n, err := normalizeCount(res)
	return n > 0, err
}

func (a *upstashAdapter) Keys(ctx context.Context, pattern string) ([]string, error) {
	res, err := a.do(ctx, "KEYS", pattern)
	if err != nil {
		return nil, err
	}
	return normalizeSlice(res)
}

func (a *upstashAdapter) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	args := []interface{}{"MGET"}
	for _, k := range keys {
		args = append(args, k)
	}
	res, err := a.do(ctx, args...)
	if err != nil {
		return nil, err
	}
	arr, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("upstash: 预期数组结果，实际为 %T", res)
	}
	out := make([]*string, len(arr))
	for i, item := range arr {
		if item == nil {
			continue
		}
		s, err := normalizeString(item)
		if err != nil {
			return nil, err
		}
		out[i] = &s
	}
	return out, nil
}

func (a *upstashAdapter) LPush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := []interface{}{"LPUSH", key}
	for _, v := range values {
		args = append(args, v)
	}
	_, err := a.do(ctx, args...)
	return err
}

func (a *upstashAdapter) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	res, err := a.do(ctx, "LRANGE", key, start, stop)
	if err != nil {
		return nil, err
	}
	return normalizeSlice(res)
}

func (a *upstashAdapter) LSet(ctx context.Context, key string, index int64, value string) error {
	_, err := a.do(ctx, "LSET", key, index, value)
	return err
}

func (a *upstashAdapter) LRem(ctx context.Context, key string, count int64, value string) error {
	_, err := a.do(ctx, "LREM", key, count, value)
	return err
}

func (a *upstashAdapter) LTrim(ctx context.Context, key string, start, stop int64) error {
	_, err := a.do(ctx, "LTRIM", key, start, stop)
	return err
}

func (a *upstashAdapter) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := []interface{}{"SADD", key}
	for _, m := range members {
		args = append(args, m)
	}
	_, err := a.do(ctx, args...)
	return err
}

func (a *upstashAdapter) SMembers(ctx context.Context, key string) ([]string, error) {
	res, err := a.do(ctx, "SMEMBERS", key)
	if err != nil {
		return nil, err
	}
	return normalizeSlice(res)
}

func (a *upstashAdapter) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := []interface{}{"SREM", key}
	for _, m := range members {
		args = append(args, m)
	}
	_, err := a.do(ctx, args...)
	return err
}

func (a *upstashAdapter) ZAdd(ctx context.Context, key string, score float64, member string) error {
	_, err := a.do(ctx, "ZADD", key, score, member)
	return err
}

func (a *upstashAdapter) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	res, err := a.do(ctx, "ZRANGE", key, start, stop)
	if err != nil {
		return nil, err
	}
	return normalizeSlice(res)
}

func (a *upstashAdapter) ZRank(ctx context.Context, key, member string) (int64, error) {
	res, err := a.do(ctx, "ZRANK", key, member)
	if err != nil {
		return 0, err
	}
	if res == nil {
		return 0, ErrNil
	}
	return normalizeCount(res)
}

func (a *upstashAdapter) ZCard(ctx context.Context, key string) (int64, error) {
	res, err := a.do(ctx, "ZCARD", key)
	if err != nil {
		return 0, err
	}
	return normalizeCount(res)
}

func (a *upstashAdapter) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := []interface{}{"ZREM", key}
	for _, m := range members {
		args = append(args, m)
	}
	_, err := a.do(ctx, args...)
	return err
}
