package storage

import "golang.org/x/sync/singleflight"

// lockRegistry 每用户变更锁注册表
//
// 进程内协作式互斥：迁移 / 清理这类操作按 "{用户}:{实体}" 归并，
// 已有同键操作在途时，后来者等待其结果而不是重复执行。
// singleflight 在操作结束后自动移除在途记录（等价于 finally 清理），
// 跨进程互斥不在保证范围内。
type lockRegistry struct {
	group singleflight.Group
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{}
}

// Do 以 key 归并执行 fn；并发同键调用共享同一次执行的结果
func (l *lockRegistry) Do(key string, fn func() error) error {
	_, err, _ := l.group.Do(key, func() (interface{}, error) {
		return nil, fn()
	})
	return err
}
