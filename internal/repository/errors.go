package repository

import (
	"errors"

	"gorm.io/gorm"
)

// notFound 将 gorm 未找到错误转为 (false, nil)，其余错误原样返回
func notFound(err error) (bool, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	return false, err
}
