package imapclient

// Expunge 发送 EXPUNGE 命令，返回被删除的邮件序号，按服务器发送的顺序。
//
// 每个序号都是删除前一封邮件之后的序号，与缓存的重新编号一致。
func (c *Client) Expunge() ([]uint32, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	var seqNums []uint32
	pd := &pendingData{expunge: func(seqNum uint32) {
		seqNums = append(seqNums, seqNum)
	}}
	err := c.executeWith(pd, "EXPUNGE", nil)
	return seqNums, err
}
