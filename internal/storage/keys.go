package storage

// 键空间布局
//
// 每用户集合（播放记录 / 收藏 / 跳过配置）各自合并成一个 hash，
// field 为 "source+id" 组合键；旧版一键一记录的布局在线迁移到 hash。

const (
	adminConfigKey = "admin:config"     // 全局管理配置（单例）
	userIndexKey   = "users:registered" // 注册时间排序的用户索引（zset，score 为注册时间戳）
	requestsKey    = "mr:all"           // 求片全局集合（hash，field 为请求 id）
)

// compositeKey 组合键：source + id
func compositeKey(source, id string) string {
	return source + "+" + id
}

func userInfoKey(username string) string {
	return "u:" + username + ":info"
}

// 合并后的每用户 hash

func playRecordsKey(username string) string {
	return "u:" + username + ":playrecords"
}

func favoritesKey(username string) string {
	return "u:" + username + ":favorites"
}

func skipConfigsKey(username string) string {
	return "u:" + username + ":skipconfigs"
}

// 旧版一键一记录布局的前缀（迁移与防御性清理用）

func legacyPlayRecordPrefix(username string) string {
	return "u:" + username + ":pr:"
}

func legacyFavoritePrefix(username string) string {
	return "u:" + username + ":fav:"
}

func legacySkipConfigPrefix(username string) string {
	return "u:" + username + ":sc:"
}

func notificationsKey(username string) string {
	return "u:" + username + ":notifications"
}

// userRequestsKey 用户触达过的求片 id 索引（set）
func userRequestsKey(username string) string {
	return "u:" + username + ":mr"
}

// oidcSubKey 外部身份 sub 到用户名的索引
func oidcSubKey(sub string) string {
	return "oidc:" + sub
}

// globalValueKey 协作子系统的通用命名空间
func globalValueKey(name string) string {
	return "g:" + name
}
