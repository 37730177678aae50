package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/99designs/keyring"
	"github.com/spf13/cobra"

	"github.com/luhaoyun888/go-imapdriver"
	"github.com/luhaoyun888/go-imapdriver/driver"
	"github.com/luhaoyun888/go-imapdriver/imapclient"
)

func cmdList() *cobra.Command {
	var subscribed, remote bool
	c := &cobra.Command{
		Use:   "list [pattern]",
		Short: "列出邮箱",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) > 0 {
				pattern = args[0]
			}
			return withServer(func(s *session, c *imapclient.Client) error {
				l, err := c.List("", pattern, &imap.ListOptions{Subscribed: subscribed, Remote: remote})
				if err != nil {
					return err
				}
				for _, data := range l {
					delim := "NIL"
					if data.Delim != 0 {
						delim = string(data.Delim)
					}
					attrs := make([]string, len(data.Attrs))
					for i, attr := range data.Attrs {
						attrs[i] = string(attr)
					}
					fmt.Printf("%-40s %s (%s)\n", data.Mailbox, delim, strings.Join(attrs, " "))
				}
				return nil
			})
		},
	}
	c.Flags().BoolVar(&subscribed, "subscribed", false, "只列出已订阅的邮箱")
	c.Flags().BoolVar(&remote, "remote", false, "包括被引荐到其他服务器的邮箱")
	return c
}

func cmdStatus() *cobra.Command {
	return &cobra.Command{
		Use:   "status <mailbox>",
		Short: "显示邮箱状态",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServer(func(s *session, c *imapclient.Client) error {
				data, err := c.Status(args[0], nil)
				if err != nil {
					return err
				}
				fmt.Printf("%s\n", data.Mailbox)
				printCount("messages", data.NumMessages)
				printCount("recent", data.NumRecent)
				printCount("unseen", data.NumUnseen)
				fmt.Printf("  uidnext:     %v\n", data.UIDNext)
				fmt.Printf("  uidvalidity: %v\n", data.UIDValidity)
				return nil
			})
		},
	}
}

func printCount(name string, n *uint32) {
	if n == nil {
		return
	}
	fmt.Printf("  %-12s %v\n", name+":", *n)
}

func cmdFetch() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <mailbox> <seqset>",
		Short: "打印邮件信封",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMailbox(args[0], func(s *session, stream driver.Stream) error {
				nums, err := expandSeqSet(args[1], stream.Mailbox().NumMessages)
				if err != nil {
					return err
				}
				for _, num := range nums {
					env, err := stream.Envelope(num)
					if err != nil {
						return err
					}
					printEnvelope(num, env)
				}
				return nil
			})
		},
	}
}

func cmdSort() *cobra.Command {
	return &cobra.Command{
		Use:   "sort <mailbox> <key...>",
		Short: "按关键字排序邮件，关键字前加 - 表示倒序",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var criteria []imapclient.SortCriterion
			for _, arg := range args[1:] {
				reverse := strings.HasPrefix(arg, "-")
				key := imapclient.SortKey(strings.ToUpper(strings.TrimPrefix(arg, "-")))
				criteria = append(criteria, imapclient.SortCriterion{Key: key, Reverse: reverse})
			}
			return withSelected(args[0], func(s *session, c *imapclient.Client) error {
				nums, err := c.Sort(criteria, nil)
				if err != nil {
					return err
				}
				for _, num := range nums {
					env, err := c.Envelope(num)
					if err != nil {
						return err
					}
					printEnvelope(num, env)
				}
				return nil
			})
		},
	}
}

func cmdThread() *cobra.Command {
	return &cobra.Command{
		Use:   "thread <mailbox> <algorithm>",
		Short: "按线程显示邮件（ORDEREDSUBJECT 或 REFERENCES）",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			alg := imap.ThreadAlgorithm(strings.ToUpper(args[1]))
			return withSelected(args[0], func(s *session, c *imapclient.Client) error {
				threads, err := c.Thread(alg, nil)
				if err != nil {
					return err
				}
				for _, root := range threads {
					printThread(c, root, 0)
				}
				return nil
			})
		},
	}
}

func cmdPassword() *cobra.Command {
	return &cobra.Command{
		Use:   "password",
		Short: "把账户密码保存到密钥环",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.pool.Close()

			fmt.Fprintf(os.Stderr, "%s 的密码: ", s.account.User)
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return err
			}
			ring, err := openKeyring()
			if err != nil {
				return err
			}
			return ring.Set(keyring.Item{
				Key:  s.account.User,
				Data: []byte(strings.TrimRight(line, "\r\n")),
			})
		},
	}
}

// withServer 打开账户服务器上的已认证会话。
func withServer(f func(s *session, c *imapclient.Client) error) error {
	return withSelected("", f)
}

// withSelected 打开选中 mailbox 的会话。mailbox 为空时只认证。
func withSelected(mailbox string, f func(s *session, c *imapclient.Client) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.pool.Close()

	c, err := s.pool.Open(s.account.Mailbox(mailbox))
	if err != nil {
		return err
	}
	defer s.pool.Release(c)
	return f(s, c)
}

// withMailbox 通过驱动表打开邮箱。
func withMailbox(mailbox string, f func(s *session, stream driver.Stream) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.pool.Close()

	stream, err := driver.Open(s.account.Mailbox(mailbox))
	if err != nil {
		return err
	}
	defer stream.Close()
	return f(s, stream)
}

// expandSeqSet 把 "1:3,7" 或 "5:*" 展开为序号列表。
func expandSeqSet(s string, numMessages uint32) ([]uint32, error) {
	var nums []uint32
	for _, r := range strings.Split(s, ",") {
		lo, hi, isRange := strings.Cut(r, ":")
		start, err := parseSeqNum(lo, numMessages)
		if err != nil {
			return nil, err
		}
		stop := start
		if isRange {
			if stop, err = parseSeqNum(hi, numMessages); err != nil {
				return nil, err
			}
		}
		if start > stop {
			start, stop = stop, start
		}
		for n := start; n <= stop && n != 0; n++ {
			nums = append(nums, n)
		}
	}
	return nums, nil
}

func parseSeqNum(s string, numMessages uint32) (uint32, error) {
	if s == "*" {
		return numMessages, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("无效的消息序号 %q", s)
	}
	return uint32(n), nil
}

func printEnvelope(num uint32, env *imap.Envelope) {
	from := ""
	if len(env.From) > 0 {
		from = env.From[0].Name
		if from == "" {
			from = env.From[0].Addr()
		}
	}
	date := env.RawDate
	if !env.Date.IsZero() {
		date = env.Date.Format("2006-01-02 15:04")
	}
	fmt.Printf("%6d  %-16s  %-24.24s  %s\n", num, date, from, env.Subject)
}

func printThread(c *imapclient.Client, node *imap.ThreadNode, depth int) {
	indent := strings.Repeat("  ", depth)
	if node.Num == 0 {
		fmt.Printf("%s(缺失)\n", indent)
	} else {
		env, err := c.Envelope(node.Num)
		subject := ""
		if err == nil {
			subject = env.Subject
		}
		fmt.Printf("%s%d %s\n", indent, node.Num, subject)
	}
	for _, child := range node.Children {
		printThread(c, child, depth+1)
	}
}
