package imap

// NamespaceData 是 NAMESPACE 命令返回的数据，三个命名空间都可能为空（NIL）。
type NamespaceData struct {
	Personal []NamespaceDescriptor // 个人命名空间
	Other    []NamespaceDescriptor // 其他用户命名空间
	Shared   []NamespaceDescriptor // 共享命名空间
}

// NamespaceDescriptor 描述一个命名空间。
type NamespaceDescriptor struct {
	Prefix string
	Delim  rune // 0 表示没有层级分隔符

	// Extensions 保存命名空间扩展，键为扩展名，值为参数列表。
	Extensions map[string][]string
}
