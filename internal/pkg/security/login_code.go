package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// LoginCodeLength 登录码固定长度
const LoginCodeLength = 32

// NewLoginCode 由请求 IP、随机数与当前时间哈希得到，不可逆
func NewLoginCode(ip string) string {
	nonce := make([]byte, 16)
	_, _ = rand.Read(nonce)

	h := sha256.New()
	h.Write([]byte(ip))
	h.Write([]byte(uuid.NewString()))
	h.Write(nonce)
	h.Write([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))

	return hex.EncodeToString(h.Sum(nil))[:LoginCodeLength]
}
