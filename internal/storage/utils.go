package storage

import (
	"errors"
	"strconv"

	"gorm.io/gorm"
)

// StrToUint 将路由参数等字符串转换为 ID。
func StrToUint(s string) (uint, error) {
	val, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(val), nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// unreferencedImages filters urls down to those no review or user row points at.
// Call it inside the deleting transaction so the rows just removed no longer count.
func unreferencedImages(tx *gorm.DB, urls []string) ([]string, error) {
	var orphaned []string
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		inUse, err := imageReferenced(tx, u)
		if err != nil {
			return nil, err
		}
		if !inUse {
			orphaned = append(orphaned, u)
		}
	}
	return orphaned, nil
}

func imageReferenced(db *gorm.DB, url string) (bool, error) {
	var refs int64
	err := db.Raw(
		"SELECT (SELECT COUNT(*) FROM reviews WHERE image_url = ?) + (SELECT COUNT(*) FROM users WHERE profile_pic_url = ?)",
		url, url,
	).Scan(&refs).Error
	if err != nil {
		return false, err
	}
	return refs > 0, nil
}
