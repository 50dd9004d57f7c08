package identity

import (
	"fmt"
	"hash/fnv"
	"net/http"
)

// Identity 调用方身份：客户端 IP + 请求头派生的会话指纹
type Identity struct {
	IP          string
	Fingerprint string
}

// Key 对话记忆的定位键
func (id Identity) Key() string {
	return fmt.Sprintf("%s:%s", id.IP, id.Fingerprint)
}

// Fingerprint 从 User-Agent 和 Accept-Language 派生会话指纹（非加密用途）
func Fingerprint(userAgent, acceptLanguage string) string {
	h := fnv.New64a()
	h.Write([]byte(userAgent))
	h.Write([]byte{0})
	h.Write([]byte(acceptLanguage))
	return fmt.Sprintf("%016x", h.Sum64())
}

// FromRequest 从 HTTP 请求提取身份
func FromRequest(r *http.Request, clientIP string) Identity {
	return Identity{
		IP:          clientIP,
		Fingerprint: Fingerprint(r.Header.Get("User-Agent"), r.Header.Get("Accept-Language")),
	}
}
