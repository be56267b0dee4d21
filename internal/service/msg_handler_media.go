package service

import (
	"Mallchat/internal/model"
	"Mallchat/internal/repository"
	"context"

	"github.com/goccy/go-json"
)

// URLChecker 校验媒体地址是否来自本站对象存储，为 nil 时不校验
type URLChecker func(raw string) bool

// mediaMsgHandler 图片、文件、语音、视频、表情共用的处理流程
type mediaMsgHandler[T any] struct {
	msgType     int8
	checkURL    URLChecker
	urlOf       func(*T) string
	put         func(*model.MessageExtra, *T)
	get         func(*model.MessageExtra) *T
	replyText   func(*T) string
	contactText func(*T) string
}

func (h *mediaMsgHandler[T]) Type() int8 {
	return h.msgType
}

func (h *mediaMsgHandler[T]) CheckMsg(_ context.Context, body json.RawMessage, _, _ uint64) (any, error) {
	req, err := decodeMsgBody[T](body)
	if err != nil {
		return nil, err
	}
	if h.checkURL != nil && !h.checkURL(h.urlOf(req)) {
		return nil, ErrMediaURLInvalid
	}
	return req, nil
}

func (h *mediaMsgHandler[T]) SaveMsg(ctx context.Context, tx repository.MessageRepo, msg *model.Message, body any) error {
	h.put(&msg.Extra, body.(*T))
	return tx.UpdateMessage(ctx, msg)
}

func (h *mediaMsgHandler[T]) ShowMsg(_ context.Context, msg *model.Message) any {
	return h.get(&msg.Extra)
}

func (h *mediaMsgHandler[T]) ShowReplyMsg(msg *model.Message) any {
	return h.replyText(h.get(&msg.Extra))
}

func (h *mediaMsgHandler[T]) ShowContactMsg(msg *model.Message) string {
	return h.contactText(h.get(&msg.Extra))
}

func NewImgMsgHandler(checkURL URLChecker) MsgHandler {
	return &mediaMsgHandler[model.ImgMsg]{
		msgType:     model.MsgTypeImg,
		checkURL:    checkURL,
		urlOf:       func(m *model.ImgMsg) string { return m.URL },
		put:         func(e *model.MessageExtra, m *model.ImgMsg) { e.ImgMsg = m },
		get:         func(e *model.MessageExtra) *model.ImgMsg { return e.ImgMsg },
		replyText:   func(*model.ImgMsg) string { return "图片" },
		contactText: func(*model.ImgMsg) string { return "[图片]" },
	}
}

func NewFileMsgHandler(checkURL URLChecker) MsgHandler {
	return &mediaMsgHandler[model.FileMsg]{
		msgType:  model.MsgTypeFile,
		checkURL: checkURL,
		urlOf:    func(m *model.FileMsg) string { return m.URL },
		put:      func(e *model.MessageExtra, m *model.FileMsg) { e.FileMsg = m },
		get:      func(e *model.MessageExtra) *model.FileMsg { return e.FileMsg },
		replyText: func(m *model.FileMsg) string {
			if m == nil {
				return "文件"
			}
			return "文件:" + m.FileName
		},
		contactText: func(m *model.FileMsg) string {
			if m == nil {
				return "[文件]"
			}
			return "[文件]" + m.FileName
		},
	}
}

func NewSoundMsgHandler(checkURL URLChecker) MsgHandler {
	return &mediaMsgHandler[model.SoundMsg]{
		msgType:     model.MsgTypeSound,
		checkURL:    checkURL,
		urlOf:       func(m *model.SoundMsg) string { return m.URL },
		put:         func(e *model.MessageExtra, m *model.SoundMsg) { e.SoundMsg = m },
		get:         func(e *model.MessageExtra) *model.SoundMsg { return e.SoundMsg },
		replyText:   func(*model.SoundMsg) string { return "语音" },
		contactText: func(*model.SoundMsg) string { return "[语音]" },
	}
}

func NewVideoMsgHandler(checkURL URLChecker) MsgHandler {
	return &mediaMsgHandler[model.VideoMsg]{
		msgType:     model.MsgTypeVideo,
		checkURL:    checkURL,
		urlOf:       func(m *model.VideoMsg) string { return m.URL },
		put:         func(e *model.MessageExtra, m *model.VideoMsg) { e.VideoMsg = m },
		get:         func(e *model.MessageExtra) *model.VideoMsg { return e.VideoMsg },
		replyText:   func(*model.VideoMsg) string { return "视频" },
		contactText: func(*model.VideoMsg) string { return "[视频]" },
	}
}

func NewEmojiMsgHandler(checkURL URLChecker) MsgHandler {
	return &mediaMsgHandler[model.EmojisMsg]{
		msgType:     model.MsgTypeEmoji,
		checkURL:    checkURL,
		urlOf:       func(m *model.EmojisMsg) string { return m.URL },
		put:         func(e *model.MessageExtra, m *model.EmojisMsg) { e.EmojisMsg = m },
		get:         func(e *model.MessageExtra) *model.EmojisMsg { return e.EmojisMsg },
		replyText:   func(*model.EmojisMsg) string { return "表情" },
		contactText: func(*model.EmojisMsg) string { return "[表情包]" },
	}
}
