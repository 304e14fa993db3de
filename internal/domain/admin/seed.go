package admin

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	platformerrors "voice-chat-go/internal/platform/errors"
)

// 管理员种子数据
const (
	AdminUsername = "admin"
	AdminPassword = "admin"
	AdminEmail    = "admin@example.com"
	AdminFullName = "Admin User"
	BcryptCost    = 10

	usersTable = "users"
)

// User mirrors the backend users table. The table is owned by the backend
// migrations; this model is only used for the upsert.
type User struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	Username       string    `gorm:"size:50;uniqueIndex;not null"`
	Email          string    `gorm:"size:100;uniqueIndex;not null"`
	HashedPassword string    `gorm:"size:255;not null"`
	FullName       string    `gorm:"size:100"`
	IsActive       bool      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (User) TableName() string {
	return usersTable
}

// Logger is the logging contract of the seeding command.
type Logger interface {
	InfoTag(tag, msg string, args ...any)
	WarnTag(tag, msg string, args ...any)
	ErrorTag(tag, msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) InfoTag(string, string, ...any)  {}
func (nopLogger) WarnTag(string, string, ...any)  {}
func (nopLogger) ErrorTag(string, string, ...any) {}

// Options 种子命令参数
type Options struct {
	Settings Settings
	Dialer   Dialer
	Logger   Logger
}

// Run seeds the admin account: connect to the first reachable host, check
// that the users table exists, then upsert the admin row. The returned
// error's kind decides the exit code, see ExitCode.
func Run(ctx context.Context, opts Options) (err error) {
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}
	defer func() {
		if r := recover(); r != nil {
			err = platformerrors.New(platformerrors.KindUnknown, "admin.run", fmt.Sprintf("panic: %v", r))
			log.ErrorTag("管理员", "Unexpected error: %v", r)
		}
	}()

	dialer := opts.Dialer
	if dialer == nil {
		dialer = MySQLDialer{ConnectTimeout: opts.Settings.ConnectTimeout}
	}

	db, err := Connect(ctx, dialer, opts.Settings.Targets(), log)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}()

	queryTimeout := opts.Settings.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := ensureUsersTable(qctx, db); err != nil {
		log.ErrorTag("管理员", "%v", err)
		return err
	}
	if err := UpsertAdmin(qctx, db); err != nil {
		log.ErrorTag("管理员", "Init admin failed: %v", err)
		return err
	}
	log.InfoTag("管理员", "Admin user initialized: username=%s, password=%s", AdminUsername, AdminPassword)
	return nil
}

// Connect tries each target in order and returns the first open connection.
// Every failure is logged with its driver code.
func Connect(ctx context.Context, dialer Dialer, targets []Target, log Logger) (*gorm.DB, error) {
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConnection, "admin.connect", "connection attempts interrupted", err)
		}
		db, err := dialer.Dial(ctx, target)
		if err != nil {
			log.WarnTag("管理员", "Connect failed %s - %s", target.Addr(), ErrorCode(err))
			continue
		}
		log.InfoTag("管理员", "Connected to MySQL at %s", target.Addr())
		return db, nil
	}
	log.ErrorTag("管理员", "All connection attempts failed. Check .env (MYSQL_HOST/MYSQL_PORT/MYSQL_USER/MYSQL_PASSWORD/MYSQL_DB).")
	return nil, platformerrors.New(platformerrors.KindConnection, "admin.connect", "all connection attempts failed")
}

// ensureUsersTable fails with KindPrecondition only when the catalog query
// succeeds and finds no users table. Query errors are not read as absence.
func ensureUsersTable(ctx context.Context, db *gorm.DB) error {
	const op = "admin.check_table"

	var query string
	switch db.Dialector.Name() {
	case "mysql":
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?"
	case "sqlite":
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	default:
		return platformerrors.New(platformerrors.KindUnknown, op, "unsupported dialect "+db.Dialector.Name())
	}

	var n int64
	if err := db.WithContext(ctx).Raw(query, usersTable).Scan(&n).Error; err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return platformerrors.Wrap(platformerrors.KindData, op, "users table check timed out", ctxErr)
		}
		return platformerrors.Wrap(platformerrors.KindUnknown, op, "users table check failed", err)
	}
	if n == 0 {
		return platformerrors.New(platformerrors.KindPrecondition, op,
			"Table `users` not found. Please run the backend migrations first.")
	}
	return nil
}

// UpsertAdmin inserts the admin row or refreshes email, full name, password
// hash and active flag of an existing one. Username and created_at are never
// touched on update.
func UpsertAdmin(ctx context.Context, db *gorm.DB) error {
	const op = "admin.upsert"

	hash, err := bcrypt.GenerateFromPassword([]byte(AdminPassword), BcryptCost)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindData, op, "failed to hash password", err)
	}

	user := User{
		Username:       AdminUsername,
		Email:          AdminEmail,
		HashedPassword: string(hash),
		FullName:       AdminFullName,
		IsActive:       true,
	}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "full_name", "hashed_password", "is_active"}),
	}).Create(&user).Error
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindData, op, "upsert failed", err)
	}
	return nil
}

// ExitCode maps a Run error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch platformerrors.KindOf(err) {
	case platformerrors.KindConnection:
		return 2
	case platformerrors.KindPrecondition:
		return 3
	case platformerrors.KindData:
		return 4
	default:
		return 1
	}
}
