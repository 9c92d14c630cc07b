package http

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/vovakirdan/livechat/internal/core"
	"github.com/vovakirdan/livechat/internal/proto"
)

const defaultRoom = "live"

// decodeHello validates the first frame of a connection.
func decodeHello(inbound proto.Inbound) (proto.HelloData, *proto.Error) {
	if inbound.Type != proto.InboundTypeHello {
		return proto.HelloData{}, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "hello required"}
	}
	var hello proto.HelloData
	if len(inbound.Data) > 0 {
		if err := json.Unmarshal(inbound.Data, &hello); err != nil {
			return proto.HelloData{}, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid hello payload"}
		}
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		return proto.HelloData{}, &proto.Error{Code: ErrCodeUnsupportedVersion, Msg: "unsupported protocol version"}
	}
	hello.Room = strings.TrimSpace(hello.Room)
	if hello.Room == "" {
		hello.Room = defaultRoom
	}
	return hello, nil
}

// inboundToCommand maps a frame received after the hello handshake.
func inboundToCommand(client *core.Client, inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid msg payload"}
		}
		return &core.Command{
			Kind:    core.CommandSendMessage,
			Message: core.Message{ID: msg.ID, Text: msg.Text},
		}, nil
	case proto.InboundTypeTypingStart:
		return &core.Command{Kind: core.CommandTypingStart}, nil
	case proto.InboundTypeTypingStop:
		return &core.Command{Kind: core.CommandTypingStop}, nil
	case proto.InboundTypeLeave:
		return &core.Command{Kind: core.CommandLeave}, nil
	case proto.InboundTypeHello:
		// The hub answers a second join with already_joined.
		hello, protoErr := decodeHello(inbound)
		if protoErr != nil {
			return nil, protoErr
		}
		return &core.Command{Kind: core.CommandJoin, Room: hello.Room, User: client.Name, UserID: client.UserID}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}
	}
}

func eventMessage(msg core.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:   msg.ID,
		Kind: string(msg.Kind),
		User: msg.From,
		Text: msg.Text,
		TS:   msg.CreatedAt.UnixMilli(),
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventAck:
		return proto.Outbound{
			Type: proto.OutboundTypeAck,
			Data: proto.AckData{Room: event.Room, User: event.User},
		}
	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data:  eventMessage(event.Message),
		}
	case core.EventTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameTyping,
			Data:  proto.EventTyping{User: event.User, Typing: event.Typing},
		}
	case core.EventHistory:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameHistory,
			Data: proto.EventHistory{
				Room: event.Room,
				Messages: lo.Map(event.Messages, func(msg core.Message, _ int) proto.EventMessage {
					return eventMessage(msg)
				}),
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
