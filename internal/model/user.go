package model

// 用户角色
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User 用户记录（整体以 JSON 存储在 u:{username}:info）
// 只保存密码的单向哈希，明文不落盘
type User struct {
	Username     string   `json:"username"`
	Role         string   `json:"role"`
	Banned       bool     `json:"banned"`
	PasswordHash string   `json:"password_hash,omitempty"`
	OidcSub      string   `json:"oidc_sub,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	EnabledApis  []string `json:"enabled_apis,omitempty"`
	CreatedAt    int64    `json:"created_at"`

	// 迁移完成标记：一旦置 true 不再回退
	PlayRecordsMigrated bool `json:"play_records_migrated,omitempty"`
	FavoritesMigrated   bool `json:"favorites_migrated,omitempty"`
	SkipConfigsMigrated bool `json:"skip_configs_migrated,omitempty"`
}

// UserListItem 用户列表条目（分页接口返回）
type UserListItem struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	Banned    bool   `json:"banned"`
	CreatedAt int64  `json:"created_at"`
}

// UserListResult 分页结果
type UserListResult struct {
	Users []UserListItem `json:"users"`
	Total int            `json:"total"`
}
