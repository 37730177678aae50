// imapcli 是一个命令行 IMAP 客户端，用于查看邮箱、状态、信封以及排序和线程结果。
package main

import (
	"fmt"
	"mime"
	"os"

	"github.com/99designs/keyring"
	"github.com/emersion/go-message/charset"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/luhaoyun888/go-imapdriver/driver"
	"github.com/luhaoyun888/go-imapdriver/imapclient"
	"github.com/luhaoyun888/go-imapdriver/internal/config"
)

const keyringService = "imapcli"

var (
	cfgFile     string
	accountName string
	debug       bool
)

// session 是一次命令执行所需的账户和连接池。
type session struct {
	account *config.Account
	pool    *imapclient.Pool
	log     *logrus.Logger
}

var mainCmd = &cobra.Command{
	Use:           "imapcli",
	Short:         "imapcli: 命令行 IMAP 客户端",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	mainCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath(), "配置文件路径")
	mainCmd.PersistentFlags().StringVar(&accountName, "account", "", "使用的账户名，默认为第一个账户")
	mainCmd.PersistentFlags().BoolVar(&debug, "debug", false, "打印协议记录")

	mainCmd.AddCommand(
		cmdList(),
		cmdStatus(),
		cmdFetch(),
		cmdSort(),
		cmdThread(),
		cmdPassword(),
	)
}

func main() {
	if err := mainCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "imapcli:", err)
		os.Exit(1)
	}
}

// openSession 读取配置并创建连接池。调用方负责 s.pool.Close()。
func openSession() (*session, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}

	f, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	account, err := f.Account(accountName)
	if err != nil {
		return nil, err
	}

	options := &imapclient.Options{
		Config:      &f.IMAP,
		Logger:      log.WithField("account", account.Name),
		WordDecoder: &mime.WordDecoder{CharsetReader: charset.Reader},
	}
	pool := imapclient.NewPool(options, func(mbx *imapclient.NetMailbox, mech string, trial int) (*imapclient.Credentials, error) {
		if trial > 1 {
			// 密钥环中的密码不会变，重试没有意义
			return nil, imapclient.ErrAuthCanceled
		}
		user := mbx.User
		if user == "" {
			user = account.User
		}
		password, err := lookupPassword(user)
		if err != nil {
			return nil, err
		}
		return &imapclient.Credentials{Username: user, Password: password}, nil
	})
	driver.Unregister("imap")
	driver.Register(&imapclient.Driver{Pool: pool})

	return &session{account: account, pool: pool, log: log}, nil
}

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/imapcli/credentials",
		FilePasswordFunc:         keyring.TerminalPrompt,
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("打开密钥环失败: %w", err)
	}
	return ring, nil
}

func lookupPassword(user string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(user)
	if err == keyring.ErrKeyNotFound {
		return "", fmt.Errorf("密钥环中没有 %q 的密码，请先运行 imapcli password", user)
	} else if err != nil {
		return "", fmt.Errorf("读取 %q 的密码失败: %w", user, err)
	}
	return string(item.Data), nil
}
