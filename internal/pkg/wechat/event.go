package wechat

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"sort"
	"strings"
)

// 事件类型
const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
	EventScan        = "SCAN"

	QrScenePrefix = "qrscene_"
)

// EventMessage 公众号推送的 XML 事件
type EventMessage struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   string   `xml:"ToUserName"`
	FromUserName string   `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      string   `xml:"MsgType"`
	Event        string   `xml:"Event"`
	EventKey     string   `xml:"EventKey"`
	Ticket       string   `xml:"Ticket"`
}

// SceneCode 关注事件的场景值带 qrscene_ 前缀，扫码事件不带
func (m *EventMessage) SceneCode() string {
	return strings.TrimPrefix(m.EventKey, QrScenePrefix)
}

// CheckSignature 校验服务器配置签名：sha1(sort(token, timestamp, nonce))
func CheckSignature(token, signature, timestamp, nonce string) bool {
	parts := []string{token, timestamp, nonce}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:]) == signature
}
