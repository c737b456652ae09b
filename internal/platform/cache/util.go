package cache

import "strings"

// Key はprefixと修飾子を":"で連結したキャッシュキーを返します。
// 修飾子に含まれる空白と":"は"_"に置き換えます。
func Key(prefix string, qualifiers ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, q := range qualifiers {
		b.WriteByte(':')
		b.WriteString(safe(q))
	}
	return b.String()
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
