// Package access はロールから操作権限（ケイパビリティ）を引く。
package access

import (
	"errors"
	"strings"
)

// Role はユーザーのロール
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
	RoleCustomer Role = "customer"
)

// Capability は操作権限
type Capability string

const (
	CapScheduleRead   Capability = "schedule:read"
	CapScheduleWrite  Capability = "schedule:write"
	CapBookingWrite   Capability = "booking:write"
	CapBookingManage  Capability = "booking:manage"
	CapInventoryWrite Capability = "inventory:write"
)

// ErrUnknownRole は未知のロール
var ErrUnknownRole = errors.New("不明なロールです")

var capabilities = map[Role][]Capability{
	RoleAdmin: {
		CapScheduleRead, CapScheduleWrite, CapBookingWrite, CapBookingManage, CapInventoryWrite,
	},
	RoleEmployee: {
		CapScheduleRead, CapScheduleWrite, CapBookingWrite, CapBookingManage,
	},
	RoleCustomer: {
		CapScheduleRead, CapBookingWrite,
	},
}

// ParseRole は文字列をロールに変換する（大文字小文字は区別しない）
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := capabilities[r]; !ok {
		return "", ErrUnknownRole
	}
	return r, nil
}

// CapabilitiesOf はロールが持つ権限一覧を返す。未知のロールは空
func CapabilitiesOf(r Role) []Capability {
	caps := capabilities[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// Can はロールが権限を持つかを返す
func (r Role) Can(c Capability) bool {
	for _, have := range capabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}
