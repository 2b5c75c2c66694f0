package model

// PlayRecord 播放记录（每用户一个 hash，field 为 source+id 组合键）
type PlayRecord struct {
	Title         string `json:"title"`
	SourceName    string `json:"source_name"`
	Cover         string `json:"cover"`
	Year          string `json:"year"`
	Index         int    `json:"index"`
	TotalEpisodes int    `json:"total_episodes"`
	PlayTime      int    `json:"play_time"`
	TotalTime     int    `json:"total_time"`
	SaveTime      int64  `json:"save_time"`
	SearchTitle   string `json:"search_title,omitempty"`
}

// Favorite 收藏（与播放记录同样的组合键形态）
type Favorite struct {
	SourceName    string `json:"source_name"`
	Title         string `json:"title"`
	Year          string `json:"year"`
	Cover         string `json:"cover"`
	TotalEpisodes int    `json:"total_episodes"`
	SaveTime      int64  `json:"save_time"`
	SearchTitle   string `json:"search_title,omitempty"`
	Origin        string `json:"origin,omitempty"` // vod / live
	Finished      bool   `json:"finished,omitempty"`
	Remarks       string `json:"remarks,omitempty"`
}

// SkipConfig 片头片尾跳过配置
type SkipConfig struct {
	Enable    bool `json:"enable"`
	IntroTime int  `json:"intro_time"`
	OutroTime int  `json:"outro_time"`
}
