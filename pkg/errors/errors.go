package errors

import (
	"errors"
	"fmt"
)

// ErrStorage 存储层失败的统一哨兵，配合 errors.Is 使用
var ErrStorage = errors.New("存储操作失败，请稍后重试")

// ErrPairingInconsistency 通年课程的另一半不存在（可恢复，仅记录日志）
var ErrPairingInconsistency = errors.New("通年课程配对缺失")

// StorageError 存储层（Entity Store）读写/提交失败
// 调用方应回滚并提示可重试，不应视为致命错误
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("存储操作 %s 失败: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrStorage) 对任意 StorageError 成立
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Storage 将底层错误包装为 StorageError；err 为 nil 时返回 nil
// 已经是 StorageError 的错误原样返回，避免多层包装
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsStorage 判断是否为存储层错误
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
