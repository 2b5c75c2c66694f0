package model

// SiteConfig 站点设置
type SiteConfig struct {
	SiteName           string `json:"site_name"`
	Announcement       string `json:"announcement,omitempty"`
	SearchDownstreamMax int   `json:"search_downstream_max,omitempty"`
	ImageProxy         string `json:"image_proxy,omitempty"`
	DoubanProxy        string `json:"douban_proxy,omitempty"`
}

// SourceConfig 采集源配置
type SourceConfig struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	API      string `json:"api"`
	Detail   string `json:"detail,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	From     string `json:"from,omitempty"` // config / custom
}

// CustomCategory 自定义分类
type CustomCategory struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // movie / tv
	Query    string `json:"query"`
	Disabled bool   `json:"disabled,omitempty"`
}

// LiveConfig 直播频道配置
type LiveConfig struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	UA       string `json:"ua,omitempty"`
	EPG      string `json:"epg,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// UserGroup 用户组（权限包，用户通过 tags 引用）
type UserGroup struct {
	Name        string   `json:"name"`
	EnabledApis []string `json:"enabled_apis,omitempty"`
}

// AdminConfig 全局管理配置（单例，整体读写）
type AdminConfig struct {
	SiteConfig       SiteConfig       `json:"site_config"`
	SourceConfigs    []SourceConfig   `json:"source_configs,omitempty"`
	CustomCategories []CustomCategory `json:"custom_categories,omitempty"`
	LiveConfigs      []LiveConfig     `json:"live_configs,omitempty"`
	UserGroups       []UserGroup      `json:"user_groups,omitempty"`
}
