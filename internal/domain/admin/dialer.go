package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialer opens a database connection for one target.
type Dialer interface {
	Dial(ctx context.Context, target Target) (*gorm.DB, error)
}

// MySQLDialer connects with the go-sql-driver through gorm and pings once
// so that unreachable hosts fail here and not on the first query.
type MySQLDialer struct {
	ConnectTimeout time.Duration
}

// DSN renders the driver DSN for target.
func (d MySQLDialer) DSN(target Target) string {
	cfg := mysql.NewConfig()
	cfg.User = target.User
	cfg.Passwd = target.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(target.Host, strconv.Itoa(target.Port))
	cfg.DBName = target.Database
	cfg.Timeout = d.ConnectTimeout
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func (d MySQLDialer) Dial(ctx context.Context, target Target) (*gorm.DB, error) {
	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		DSN:                       d.DSN(target),
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	timeout := d.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

var mysqlErrorNames = map[uint16]string{
	1044: "ER_DBACCESS_DENIED_ERROR",
	1045: "ER_ACCESS_DENIED_ERROR",
	1049: "ER_BAD_DB_ERROR",
	1130: "ER_HOST_NOT_PRIVILEGED",
	1146: "ER_NO_SUCH_TABLE",
}

// ErrorCode condenses a connection error into a short driver code for logs.
func ErrorCode(err error) string {
	var myErr *mysql.MySQLError
	var dnsErr *net.DNSError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &myErr):
		if name, ok := mysqlErrorNames[myErr.Number]; ok {
			return name
		}
		return fmt.Sprintf("ER_%d", myErr.Number)
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET"
	case errors.As(err, &dnsErr):
		return "ENOTFOUND"
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return "ETIMEDOUT"
	default:
		return err.Error()
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
