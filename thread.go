package imap

// ThreadAlgorithm 表示一个线程算法。
type ThreadAlgorithm string

const (
	ThreadOrderedSubject ThreadAlgorithm = "ORDEREDSUBJECT"
	ThreadReferences     ThreadAlgorithm = "REFERENCES"
)

// ThreadNode 是线程树中的一个节点。
//
// Num 为 0 的节点是合成的父节点：服务器给出的线程没有真实的根消息，
// 它的各个子线程被挂在这个占位节点下面。
type ThreadNode struct {
	Num      uint32
	Children []*ThreadNode
}

// Walk 以深度优先前序遍历线程树，depth 从 0 开始。
func (n *ThreadNode) Walk(f func(node *ThreadNode, depth int)) {
	n.walk(f, 0)
}

func (n *ThreadNode) walk(f func(node *ThreadNode, depth int), depth int) {
	f(n, depth)
	for _, child := range n.Children {
		child.walk(f, depth+1)
	}
}

// Nums 返回线程树中所有真实消息的编号，按前序排列。
func (n *ThreadNode) Nums() []uint32 {
	var nums []uint32
	n.Walk(func(node *ThreadNode, depth int) {
		if node.Num != 0 {
			nums = append(nums, node.Num)
		}
	})
	return nums
}
