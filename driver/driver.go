// Package driver 定义了邮箱驱动的注册表。
//
// 驱动按邮箱名认领邮箱：第一个 Valid 返回 true 的已注册驱动负责打开它。
// IMAP 驱动由 imapclient.Driver 提供，需要由程序显式注册。
package driver

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/luhaoyun888/go-imapdriver"
)

// ErrNoDriver 表示没有已注册的驱动能处理给定的邮箱名。
var ErrNoDriver = errors.New("driver: 没有能处理该邮箱名的驱动")

// Stream 是一个已打开的邮箱。
type Stream interface {
	Mailbox() *imap.SelectData
	Envelope(seqNum uint32) (*imap.Envelope, error)
	Structure(seqNum uint32) (imap.BodyStructure, error)
	FetchHeader(seqNum uint32) ([]byte, error)
	FetchText(seqNum uint32) ([]byte, error)
	Search(criteria *imap.SearchCriteria) ([]uint32, error)
	Expunge() ([]uint32, error)
	// Noop 检查连接并接收新邮件通知。
	Noop() error
	// Close 归还邮箱，之后不能再使用该 Stream。
	Close() error
}

// Driver 能够打开一类邮箱名。
type Driver interface {
	Name() string
	Valid(name string) bool
	Open(name string) (Stream, error)
}

var (
	driversMu sync.RWMutex
	drivers   []Driver
)

// Register 注册一个驱动。同名驱动重复注册时 panic。
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("driver: Register 的驱动为 nil")
	}
	for _, other := range drivers {
		if other.Name() == d.Name() {
			panic("driver: 重复注册驱动 " + d.Name())
		}
	}
	drivers = append(drivers, d)
}

// Unregister 移除名为 name 的驱动。
func Unregister(name string) {
	driversMu.Lock()
	defer driversMu.Unlock()
	for i, d := range drivers {
		if d.Name() == name {
			drivers = append(drivers[:i], drivers[i+1:]...)
			return
		}
	}
}

// Lookup 按注册顺序返回第一个认领 name 的驱动。
func Lookup(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	for _, d := range drivers {
		if d.Valid(name) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoDriver, name)
}

// Open 用认领 name 的驱动打开邮箱。
func Open(name string) (Stream, error) {
	d, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return d.Open(name)
}

// Drivers 返回已注册驱动的名称，按字母排序。
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for _, d := range drivers {
		names = append(names, d.Name())
	}
	sort.Strings(names)
	return names
}
