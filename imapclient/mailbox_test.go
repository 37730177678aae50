package imapclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luhaoyun888/go-imapdriver"
)

func TestList(t *testing.T) {
	c, tr := newTestClient(t, nil, preauthRev1,
		`* LIST (\Noselect \HasChildren) "/" ""`,
		`* LIST (\Marked) "/" inbox`,
		`* LIST () NIL "Sent Items" ("CHILDINFO" ("SUBSCRIBED"))`,
		"00000001 OK LIST completed",
	)
	l, err := c.List("", "*", &imap.ListOptions{Prefix: "{imap.example.org:143}"})
	require.NoError(t, err)
	assert.Equal(t, "00000001 LIST \"\" *\r\n", tr.sent())
	require.Len(t, l, 3)

	assert.Equal(t, []imap.MailboxAttr{imap.MailboxAttrNoSelect}, l[0].Attrs)
	assert.Equal(t, '/', l[0].Delim)
	assert.Equal(t, "{imap.example.org:143}INBOX", l[1].Mailbox)
	assert.True(t, l[1].HasAttr(imap.MailboxAttrMarked))
	assert.Zero(t, l[2].Delim)
	assert.Equal(t, "{imap.example.org:143}Sent Items", l[2].Mailbox)
}

func TestListSubscribed(t *testing.T) {
	c, tr := newTestClient(t, nil, preauthRev1,
		`* LSUB () "." Lists.go`,
		"00000001 OK LSUB completed",
	)
	l, err := c.List("Lists.", "%", &imap.ListOptions{Subscribed: true})
	require.NoError(t, err)
	assert.Equal(t, "00000001 LSUB Lists. %\r\n", tr.sent())
	require.Len(t, l, 1)
	assert.Equal(t, "Lists.go", l[0].Mailbox)
}

func TestListRemote(t *testing.T) {
	tests := []struct {
		name     string
		greeting string
		options  *imap.ListOptions
		sent     string
	}{
		{"RLIST", "* PREAUTH [CAPABILITY IMAP4rev1 MAILBOX-REFERRALS] ready", &imap.ListOptions{Remote: true}, "00000001 RLIST \"\" *\r\n"},
		{"RLSUB", "* PREAUTH [CAPABILITY IMAP4rev1 MAILBOX-REFERRALS] ready", &imap.ListOptions{Remote: true, Subscribed: true}, "00000001 RLSUB \"\" *\r\n"},
		{"不支持引荐时退回 LIST", preauthRev1, &imap.ListOptions{Remote: true}, "00000001 LIST \"\" *\r\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, tr := newTestClient(t, nil, tc.greeting,
				`* LIST () "/" Shared`,
				`* LSUB () "/" Shared`,
				"00000001 OK done",
			)
			l, err := c.List("", "*", tc.options)
			require.NoError(t, err)
			assert.Equal(t, tc.sent, tr.sent())
			require.Len(t, l, 1)
			assert.Equal(t, "Shared", l[0].Mailbox)
		})
	}
}

func TestListIMAP2bisFind(t *testing.T) {
	c, tr := newTestClient(t, nil,
		"* OK IMAP2bis server ready",
		"00000001 BAD unknown command",
		"* MAILBOX INBOX",
		"* MAILBOX Drafts",
		"00000002 OK FIND completed",
	)
	assert.Equal(t, imap.DialectIMAP2bis, c.Dialect())

	l, err := c.List("", "*", nil)
	require.NoError(t, err)
	assert.Contains(t, tr.sent(), "00000002 FIND ALL.MAILBOXES *\r\n")
	require.Len(t, l, 2)
	assert.Equal(t, "Drafts", l[1].Mailbox)
}

func TestStatus(t *testing.T) {
	u := func(n uint32) *uint32 { return &n }

	tests := []struct {
		name    string
		options *imap.StatusOptions
		reply   string
		cmd     string
		want    *imap.StatusData
	}{
		{
			name:  "全部数据项",
			reply: "* STATUS INBOX (MESSAGES 3 RECENT 0 UIDNEXT 44 UIDVALIDITY 7 UNSEEN 1)",
			cmd:   "00000001 STATUS INBOX (MESSAGES RECENT UIDNEXT UIDVALIDITY UNSEEN)\r\n",
			want:  &imap.StatusData{Mailbox: "INBOX", NumMessages: u(3), NumRecent: u(0), UIDNext: 44, UIDValidity: 7, NumUnseen: u(1)},
		},
		{
			name:    "部分数据项与未知项",
			options: &imap.StatusOptions{NumUnseen: true},
			reply:   "* STATUS INBOX (UNSEEN 2 HIGHESTMODSEQ 900)",
			cmd:     "00000001 STATUS INBOX (UNSEEN)\r\n",
			want:    &imap.StatusData{Mailbox: "INBOX", NumUnseen: u(2)},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, tr := newTestClient(t, nil, preauthRev1, tc.reply, "00000001 OK STATUS completed")
			data, err := c.Status("INBOX", tc.options)
			require.NoError(t, err)
			assert.Equal(t, tc.cmd, tr.sent())
			assert.Equal(t, tc.want, data)
		})
	}
}

func TestStatusNeedsIMAP4(t *testing.T) {
	c, tr := newTestClient(t, nil, "* OK IMAP2 server ready", "00000001 BAD unknown command")
	before := tr.io()
	_, err := c.Status("INBOX", nil)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.Equal(t, before, tr.io())
}

func TestNamespace(t *testing.T) {
	c, _ := newTestClient(t, nil, "* PREAUTH [CAPABILITY IMAP4rev1 NAMESPACE] ready",
		`* NAMESPACE (("" "/")) (("~" "/")) (("#shared/" "/" "X-PARAM" ("A" "B"))("#public." "."))`,
		"00000001 OK NAMESPACE completed",
	)
	data, err := c.Namespace()
	require.NoError(t, err)
	assert.Equal(t, &imap.NamespaceData{
		Personal: []imap.NamespaceDescriptor{{Prefix: "", Delim: '/'}},
		Other:    []imap.NamespaceDescriptor{{Prefix: "~", Delim: '/'}},
		Shared: []imap.NamespaceDescriptor{
			{Prefix: "#shared/", Delim: '/', Extensions: map[string][]string{"X-PARAM": {"A", "B"}}},
			{Prefix: "#public.", Delim: '.'},
		},
	}, data)
	assert.Same(t, data, c.LastNamespace())
}

func TestNamespaceNil(t *testing.T) {
	c, _ := newTestClient(t, nil, "* PREAUTH [CAPABILITY IMAP4rev1 NAMESPACE] ready",
		`* NAMESPACE (("" NIL)) NIL NIL`,
		"00000001 OK NAMESPACE completed",
	)
	data, err := c.Namespace()
	require.NoError(t, err)
	assert.Equal(t, []imap.NamespaceDescriptor{{}}, data.Personal)
	assert.Nil(t, data.Other)
	assert.Nil(t, data.Shared)
}

func TestACL(t *testing.T) {
	const greeting = "* PREAUTH [CAPABILITY IMAP4rev1 ACL] ready"

	t.Run("GETACL", func(t *testing.T) {
		c, tr := newTestClient(t, nil, greeting,
			"* ACL INBOX fred lrswipcda anyone lr",
			"00000001 OK GETACL completed",
		)
		data, err := c.GetACL("INBOX")
		require.NoError(t, err)
		assert.Equal(t, "00000001 GETACL INBOX\r\n", tr.sent())
		assert.Equal(t, "lrswipcda", data.Rights["fred"].String())
		assert.True(t, data.Rights[imap.RightsIdentifierAnyone].Has(imap.RightRead))
	})
	t.Run("LISTRIGHTS", func(t *testing.T) {
		c, _ := newTestClient(t, nil, greeting,
			"* LISTRIGHTS INBOX fred la r swi cd",
			"00000001 OK LISTRIGHTS completed",
		)
		data, err := c.ListRights("INBOX", "fred")
		require.NoError(t, err)
		assert.Equal(t, imap.RightsIdentifier("fred"), data.Identifier)
		assert.Equal(t, imap.RightSet("la"), data.Required)
		assert.Equal(t, []imap.RightSet{imap.RightSet("r"), imap.RightSet("swi"), imap.RightSet("cd")}, data.Optional)
	})
	t.Run("MYRIGHTS", func(t *testing.T) {
		c, _ := newTestClient(t, nil, greeting,
			"* MYRIGHTS INBOX rwi",
			"00000001 OK MYRIGHTS completed",
		)
		data, err := c.MyRights("INBOX")
		require.NoError(t, err)
		assert.True(t, data.Rights.Equal(imap.RightSet("irw")))
	})
	t.Run("SETACL", func(t *testing.T) {
		c, tr := newTestClient(t, nil, greeting, "00000001 OK SETACL completed", "00000002 OK DELETEACL completed")
		require.NoError(t, c.SetACL("Shared", "fred", imap.RightModificationAdd, imap.RightSet("w")))
		require.NoError(t, c.DeleteACL("Shared", "fred"))
		assert.Equal(t, "00000001 SETACL Shared fred +w\r\n00000002 DELETEACL Shared fred\r\n", tr.sent())
	})
	t.Run("不支持", func(t *testing.T) {
		c, _ := newTestClient(t, nil, preauthRev1)
		_, err := c.GetACL("INBOX")
		assert.ErrorIs(t, err, ErrNotSupported)
	})
}

func TestQuota(t *testing.T) {
	const greeting = "* PREAUTH [CAPABILITY IMAP4rev1 QUOTA] ready"

	c, tr := newTestClient(t, nil, greeting,
		`* QUOTAROOT INBOX "" user.fred`,
		`* QUOTA "" (STORAGE 10 512)`,
		`* QUOTA user.fred (MESSAGE 3 100 STORAGE 20 1024)`,
		"00000001 OK GETQUOTAROOT completed",
		"00000002 OK SETQUOTA completed",
	)
	root, quotas, err := c.GetQuotaRoot("INBOX")
	require.NoError(t, err)
	assert.Equal(t, &imap.QuotaRootData{Mailbox: "INBOX", Roots: []string{"", "user.fred"}}, root)
	require.Len(t, quotas, 2)
	assert.Equal(t, imap.QuotaResource{Usage: 3, Limit: 100}, quotas[1].Resources[imap.QuotaResourceMessage])

	err = c.SetQuota("user.fred", map[imap.QuotaResourceType]int64{
		imap.QuotaResourceStorage: 2048,
		imap.QuotaResourceMessage: 500,
	})
	require.NoError(t, err)
	assert.Contains(t, tr.sent(), "00000002 SETQUOTA user.fred (MESSAGE 500 STORAGE 2048)\r\n")
}

func TestID(t *testing.T) {
	c, tr := newTestClient(t, nil, "* PREAUTH [CAPABILITY IMAP4rev1 ID] ready",
		`* ID ("name" "Cyrus" "version" "2.4" "x-build" NIL "X-Origin" "lab")`,
		"00000001 OK ID completed",
	)
	data, err := c.ID(&imap.IDData{Name: "imapcli", Version: "1.0", Extra: map[string]string{"contact": "ops"}})
	require.NoError(t, err)
	assert.Equal(t, "00000001 ID (\"name\" \"imapcli\" \"version\" \"1.0\" \"contact\" \"ops\")\r\n", tr.sent())
	assert.Equal(t, &imap.IDData{Name: "Cyrus", Version: "2.4", Extra: map[string]string{"x-origin": "lab"}}, data)
}

func TestIDNil(t *testing.T) {
	c, tr := newTestClient(t, nil, "* PREAUTH [CAPABILITY IMAP4rev1 ID] ready",
		"* ID NIL",
		"00000001 OK ID completed",
	)
	data, err := c.ID(nil)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, "00000001 ID NIL\r\n", tr.sent())
}

func TestMailboxCommands(t *testing.T) {
	tests := []struct {
		name     string
		greeting string
		run      func(c *Client) error
		cmd      string
	}{
		{"CREATE", preauthRev1, func(c *Client) error { return c.Create("Archive/2024") }, "CREATE Archive/2024"},
		{"DELETE", preauthRev1, func(c *Client) error { return c.Delete("Old Stuff") }, `DELETE "Old Stuff"`},
		{"RENAME", preauthRev1, func(c *Client) error { return c.Rename("a", "b") }, "RENAME a b"},
		{"SUBSCRIBE", preauthRev1, func(c *Client) error { return c.Subscribe("inbox") }, "SUBSCRIBE INBOX"},
		{"UNSUBSCRIBE", preauthRev1, func(c *Client) error { return c.Unsubscribe("Lists") }, "UNSUBSCRIBE Lists"},
		{"IMAP2bis 订阅", "* OK IMAP2bis ready", func(c *Client) error { return c.Subscribe("Lists") }, "SUBSCRIBE MAILBOX Lists"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lines := []string{tc.greeting}
			tag := "00000001"
			if tc.greeting != preauthRev1 {
				lines = append(lines, "00000001 BAD unknown command")
				tag = "00000002"
			}
			lines = append(lines, tag+" OK done")
			c, tr := newTestClient(t, nil, lines...)
			require.NoError(t, tc.run(c))
			assert.Contains(t, tr.sent(), tag+" "+tc.cmd+"\r\n")
		})
	}
}

func TestCopyAndMove(t *testing.T) {
	tests := []struct {
		name string
		run  func(c *Client) error
		want string
	}{
		{
			name: "COPY",
			run:  func(c *Client) error { return c.Copy(imap.SeqSetNum(1, 2, 3), "Archive") },
			want: "00000002 COPY 1:3 Archive\r\n",
		},
		{
			name: "UID COPY",
			run:  func(c *Client) error { return c.Copy(imap.UIDSetNum(10, 12), "Sent Items") },
			want: "00000002 UID COPY 10,12 \"Sent Items\"\r\n",
		},
		{
			name: "MOVE",
			run:  func(c *Client) error { return c.Move(imap.SeqSetNum(2), "Trash") },
			want: "00000002 COPY 2 Trash\r\n00000003 STORE 2 +FLAGS.SILENT (\\Deleted)\r\n",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, tr := selectedClient(t, 3, false, "00000002 OK COPY completed", "00000003 OK STORE completed")
			require.NoError(t, tc.run(c))
			assert.Equal(t, "00000001 SELECT INBOX\r\n"+tc.want, tr.sent())
		})
	}
}

func TestMoveStopsWhenCopyFails(t *testing.T) {
	c, tr := selectedClient(t, 3, false, "00000002 NO [TRYCREATE] no such mailbox")
	err := c.Move(imap.SeqSetNum(1), "Missing")
	assert.True(t, imap.IsCode(err, imap.ResponseCodeTryCreate))
	assert.NotContains(t, tr.sent(), "STORE")
}

// fakeReferral 把所有引荐都交给同一个目标会话。
type fakeReferral struct {
	target *Client
	urls   []string
}

func (f *fakeReferral) Follow(url string, hop int) (*Client, string, error) {
	f.urls = append(f.urls, url)
	return f.target, "Remote", nil
}

func TestCopyAcrossReferral(t *testing.T) {
	target, targetTr := newTestClient(t, nil, preauthRev1, "+ go ahead", "00000001 OK APPEND completed")
	ref := &fakeReferral{target: target}

	options := testOptions()
	options.Referral = ref
	lines := append([]string{preauthRev1}, selectLines("00000001", 1)...)
	lines = append(lines,
		"00000002 NO [REFERRAL imap://other.example.org/Remote] try there",
		`* 1 FETCH (FLAGS (\Seen) INTERNALDATE "17-Jul-1996 02:44:25 -0700" BODY[] {5}`,
		"hello)",
		"00000003 OK FETCH completed",
	)
	c, tr := newTestClient(t, options, lines...)
	_, err := c.Select("INBOX", nil)
	require.NoError(t, err)

	require.NoError(t, c.Copy(imap.SeqSetNum(1), "Remote"))
	assert.Equal(t, []string{"imap://other.example.org/Remote"}, ref.urls)
	assert.Contains(t, tr.sent(), "00000003 FETCH 1 (FLAGS INTERNALDATE BODY.PEEK[])\r\n")
	assert.Contains(t, targetTr.sent(), `00000001 APPEND Remote (\Seen) "`)
	assert.Contains(t, targetTr.sent(), "{5}\r\nhello\r\n")
}
