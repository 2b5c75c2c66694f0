package model

// 求片状态
const (
	RequestPending   = "pending"
	RequestFulfilled = "fulfilled"
)

// MovieRequest 求片请求（全局集合 + 每用户索引）
type MovieRequest struct {
	ID           string   `json:"id"`
	TmdbID       string   `json:"tmdb_id,omitempty"`
	Title        string   `json:"title"`
	Year         string   `json:"year,omitempty"`
	MediaType    string   `json:"media_type"` // movie / tv
	Season       int      `json:"season,omitempty"`
	Poster       string   `json:"poster,omitempty"`
	Overview     string   `json:"overview,omitempty"`
	Requesters   []string `json:"requesters"`
	RequestCount int      `json:"request_count"`
	Status       string   `json:"status"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
	FulfilledAt  int64    `json:"fulfilled_at,omitempty"`
	FulfilledBy  string   `json:"fulfilled_by,omitempty"` // 命中的采集源
}
