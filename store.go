package imap

// StoreFlagsOp 是标志操作：设置、添加或删除。
type StoreFlagsOp int

const (
	StoreFlagsSet StoreFlagsOp = iota
	StoreFlagsAdd
	StoreFlagsDel
)

// StoreFlags 修改消息标志。
type StoreFlags struct {
	Op     StoreFlagsOp
	Silent bool // 使用 .SILENT，服务器不回送新标志
	Flags  []Flag
}

// Item 返回 STORE 的数据项名称，例如 "+FLAGS.SILENT"。
func (f *StoreFlags) Item() string {
	var s string
	switch f.Op {
	case StoreFlagsAdd:
		s = "+FLAGS"
	case StoreFlagsDel:
		s = "-FLAGS"
	default:
		s = "FLAGS"
	}
	if f.Silent {
		s += ".SILENT"
	}
	return s
}
