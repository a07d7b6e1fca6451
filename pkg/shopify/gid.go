package shopify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const gidPrefix = "gid://shopify/"

// ErrInvalidGID 无法解析的全局 ID
var ErrInvalidGID = errors.New("invalid shopify gid")

// ParseGID 解析 gid://shopify/<Type>/<numericId>，返回数字 ID
// 也接受纯数字（REST 载荷）
func ParseGID(gid string) (int64, error) {
	gid = strings.TrimSpace(gid)
	if gid == "" {
		return 0, ErrInvalidGID
	}

	raw := gid
	if strings.HasPrefix(gid, gidPrefix) {
		rest := strings.TrimPrefix(gid, gidPrefix)
		slash := strings.LastIndex(rest, "/")
		if slash <= 0 {
			return 0, fmt.Errorf("%w: %s", ErrInvalidGID, gid)
		}
		raw = rest[slash+1:]
		// 去掉 ?inventory_item=... 之类的后缀
		if q := strings.IndexByte(raw, '?'); q >= 0 {
			raw = raw[:q]
		}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidGID, gid)
	}
	return id, nil
}

// FormatGID 构造全局 ID
func FormatGID(resource string, id int64) string {
	return fmt.Sprintf("%s%s/%d", gidPrefix, resource, id)
}
