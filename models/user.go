package models

import (
	"time"

	"gorm.io/gorm"
)

// 用户角色
const (
	RoleBuyer  = "Buyer"
	RoleSeller = "Seller"
)

// User 用户模型
type User struct {
	ID        string         `gorm:"type:varchar(36);primaryKey;comment:用户ID (UUID)" json:"id"`
	Username  string         `gorm:"type:varchar(50);uniqueIndex;not null;comment:用户名" json:"username"`
	Email     string         `gorm:"type:varchar(200);uniqueIndex;not null;comment:邮箱" json:"email"`
	Password  string         `gorm:"type:varchar(255);not null;comment:密码" json:"-"` // 不返回给前端
	Role      string         `gorm:"type:varchar(10);not null;default:Buyer;comment:Buyer/Seller" json:"role"`
	LastLogin *time.Time     `gorm:"comment:最后登录时间" json:"last_login,omitempty"`
	CreatedAt time.Time      `gorm:"comment:创建时间" json:"created_at"`
	UpdatedAt time.Time      `gorm:"comment:更新时间" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间" json:"-"` // 软删除
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 创建前钩子
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

// IsSeller 是否卖家
func (u *User) IsSeller() bool {
	return u.Role == RoleSeller
}
