// Package wsrouter dispatches typed JSON websocket messages to handlers.
package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/gorilla/websocket"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidPayload     = errors.New("invalid payload")
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

// ErrorHandler receives every error returned while handling a message.
type ErrorHandler func(ctx context.Context, conn *websocket.Conn, err error)

// ValidateFunc checks a decoded struct payload.
type ValidateFunc func(payload any) error

type route struct {
	decode func(json.RawMessage) (any, error)
	handle HandlerFunc[any]
}

type WSRouter struct {
	routes      map[string]route
	middlewares []Middleware
	onError     ErrorHandler
	validate    ValidateFunc
}

func New() *WSRouter {
	return &WSRouter{
		routes:  make(map[string]route),
		onError: func(context.Context, *websocket.Conn, error) {},
	}
}

// Use appends middlewares. The first one is the outermost.
func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

func (r *WSRouter) OnError(h ErrorHandler) {
	r.onError = h
}

func (r *WSRouter) Validate(fn ValidateFunc) {
	r.validate = fn
}

// Handle registers handler for messageType. The payload is decoded into T
// and validated before the handler runs.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = route{
		decode: func(raw json.RawMessage) (any, error) {
			var payload T
			if len(raw) == 0 || string(raw) == "null" {
				return payload, nil
			}

			if err := json.Unmarshal(raw, &payload); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
			}

			return payload, nil
		},
		handle: func(ctx context.Context, conn *websocket.Conn, payload any) error {
			return handler(ctx, conn, payload.(T))
		},
	}
}

func (r *WSRouter) chain(h HandlerFunc[any]) HandlerFunc[any] {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	return h
}

func (r *WSRouter) dispatch(ctx context.Context, conn *websocket.Conn, msg message) error {
	rt, ok := r.routes[msg.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}

	payload, err := rt.decode(msg.Payload)
	if err != nil {
		return err
	}

	if r.validate != nil && reflect.Indirect(reflect.ValueOf(payload)).Kind() == reflect.Struct {
		if err := r.validate(payload); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}

	return r.chain(rt.handle)(ctx, conn, payload)
}

// ServeConn reads messages until the connection fails and returns the read
// error. Handler errors go to the error handler and do not stop the loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			var (
				syntaxErr *json.SyntaxError
				typeErr   *json.UnmarshalTypeError
			)
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				r.onError(ctx, conn, fmt.Errorf("%w: %w", ErrInvalidPayload, err))
				continue
			}

			return err
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := r.dispatch(msgCtx, conn, msg); err != nil {
			r.onError(msgCtx, conn, err)
		}
	}
}
