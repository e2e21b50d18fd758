// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"errors"

	"indialaw-go/internal/model"

	"gorm.io/gorm"
)

// translateErr 把 GORM 的未找到错误统一为业务哨兵错误。
func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrNotFound
	}
	return err
}

// checkOwner 所有按 ID 读取的资源都必须属于调用者。
func checkOwner(ownerID, userID uint) error {
	if ownerID != userID {
		return model.ErrAccessDenied
	}
	return nil
}
