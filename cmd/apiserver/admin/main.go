package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/pflag"
	"gorm.io/driver/postgres"

	"cheers-go/internal/config"
	"cheers-go/internal/logger"
	"cheers-go/internal/models"
	"cheers-go/internal/storage"
)

const usage = `使用方法:
  admin [flags] grant-admin <user>      - 授予管理员权限
  admin [flags] revoke-admin <user>     - 撤销管理员权限
  admin [flags] show-user <user>        - 显示用户信息
  admin [flags] repair-friendships      - 补齐只有单向记录的好友关系
  admin [flags] recount-cheers          - 按点赞记录重新计算评测的 cheers

<user> 可以是用户ID、用户名或邮箱。

flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

func run(argv []string, out io.Writer) error {
	var (
		configPath string
		dsn        string
		verbose    bool
		timeout    time.Duration
	)
	flagSet := pflag.NewFlagSet("admin", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "config file (default: ./config/config.yaml)")
	flagSet.StringVar(&dsn, "dsn", "", "PostgreSQL DSN, overrides the DATABASE section of the config")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log SQL statements")
	flagSet.DurationVar(&timeout, "timeout", 30*time.Second, "timeout for the whole command")
	flagSet.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	args := flagSet.Args()
	if len(args) == 0 {
		flagSet.Usage()
		return errors.New("缺少命令")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("无法加载配置: %w", err)
	}
	if dsn == "" {
		dsn = storage.DSN(cfg.Database)
	}
	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.New(level, cfg.LogFormat)

	// 管理工具直接使用 lib/pq 驱动，不经过 pgx
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer sqlDB.Close()

	db, err := storage.Open(postgres.New(postgres.Config{Conn: sqlDB}), log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a := &admin{
		users:   storage.NewGormUserRepository(db),
		friends: storage.NewGormFriendshipRepository(db),
		reviews: storage.NewGormReviewRepository(db),
		out:     out,
	}
	return a.exec(ctx, args)
}

type userStore interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetAdmin(ctx context.Context, id uint, isAdmin bool) error
}

type friendRepairer interface {
	RepairAsymmetric(ctx context.Context) (int64, error)
}

type cheerRecounter interface {
	RecountCheers(ctx context.Context) (int64, error)
}

type admin struct {
	users   userStore
	friends friendRepairer
	reviews cheerRecounter
	out     io.Writer
}

func (a *admin) exec(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "grant-admin", "revoke-admin":
		if len(rest) != 1 {
			return fmt.Errorf("%s 需要指定一个用户", cmd)
		}
		return a.setAdmin(ctx, rest[0], cmd == "grant-admin")

	case "show-user":
		if len(rest) != 1 {
			return errors.New("show-user 需要指定一个用户")
		}
		user, err := a.lookup(ctx, rest[0])
		if err != nil {
			return err
		}
		a.printUser(user)
		return nil

	case "repair-friendships":
		n, err := a.friends.RepairAsymmetric(ctx)
		if err != nil {
			return fmt.Errorf("修复好友关系失败: %w", err)
		}
		fmt.Fprintf(a.out, "补齐了 %d 条反向好友记录\n", n)
		return nil

	case "recount-cheers":
		n, err := a.reviews.RecountCheers(ctx)
		if err != nil {
			return fmt.Errorf("重新计算 cheers 失败: %w", err)
		}
		fmt.Fprintf(a.out, "修正了 %d 条评测的 cheers\n", n)
		return nil

	default:
		return fmt.Errorf("未知命令: %s", cmd)
	}
}

func (a *admin) setAdmin(ctx context.Context, ref string, isAdmin bool) error {
	user, err := a.lookup(ctx, ref)
	if err != nil {
		return err
	}
	if err := a.users.SetAdmin(ctx, user.ID, isAdmin); err != nil {
		return fmt.Errorf("更新用户 %d 失败: %w", user.ID, err)
	}
	fmt.Fprintf(a.out, "用户 %s (ID: %d) 管理员: %v\n", user.Username, user.ID, isAdmin)
	return nil
}

// lookup resolves ref as an id, then as an email if it contains "@", else as a username.
func (a *admin) lookup(ctx context.Context, ref string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if id, convErr := strconv.ParseUint(ref, 10, 32); convErr == nil {
		user, err = a.users.GetByID(ctx, uint(id))
	} else if strings.Contains(ref, "@") {
		user, err = a.users.GetByEmail(ctx, ref)
	} else {
		user, err = a.users.GetByUsername(ctx, ref)
	}
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, fmt.Errorf("用户 %q 不存在", ref)
		}
		return nil, fmt.Errorf("查找用户 %q 失败: %w", ref, err)
	}
	return user, nil
}

func (a *admin) printUser(u *models.User) {
	fmt.Fprintf(a.out, "用户 %d 信息:\n", u.ID)
	fmt.Fprintln(a.out, "--------------------------------------")
	fmt.Fprintf(a.out, "用户名: %s\n", u.Username)
	fmt.Fprintf(a.out, "邮箱: %s\n", u.Email)
	fmt.Fprintf(a.out, "管理员: %v\n", u.IsAdmin)
	if u.DateOfBirth != nil {
		fmt.Fprintf(a.out, "生日: %s\n", u.DateOfBirth.Format("2006-01-02"))
	}
	fmt.Fprintf(a.out, "创建时间: %s\n", u.CreatedAt.Format("2006-01-02 15:04:05"))
}
