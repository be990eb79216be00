package mysql

import (
	"errors"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// MySQL错误码
const (
	errDuplicateEntry   = 1062 // Duplicate entry 'xxx' for key 'yyy'
	errLockWaitTimeout  = 1205 // Lock wait timeout exceeded
	errDeadlockDetected = 1213 // Deadlock found when trying to get lock
)

// isDuplicateError 唯一索引冲突
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == errDuplicateEntry
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}

// retryReason 死锁和锁等待超时可以整体重试事务
func retryReason(err error) (string, bool) {
	var mysqlErr *gomysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return "", false
	}
	switch mysqlErr.Number {
	case errDeadlockDetected:
		return "deadlock", true
	case errLockWaitTimeout:
		return "lock_wait_timeout", true
	default:
		return "", false
	}
}
