//go:build js && wasm

package main

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"
	"time"

	"github.com/schoolmaps/drivelink/core/client"
	"github.com/schoolmaps/drivelink/core/handshake"
	"github.com/schoolmaps/drivelink/core/markdown"
)

var _ handshake.Broker = (*client.Client)(nil)

func main() {
	renderer := markdown.NewRenderer()
	api := js.Global().Get("Object").New()

	// format: renderDescription(markdown) -> html
	api.Set("renderDescription", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) != 1 {
			return "Error: Invalid number of arguments"
		}
		html, err := renderer.RenderString(args[0].String())
		if err != nil {
			return "Error: " + err.Error()
		}
		return html
	}))

	// format: link(userId, apiBase, sessionToken, onChange(state, error)) -> {cancel()}
	api.Set("link", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) != 4 {
			return js.Global().Get("Error").New("link(userId, apiBase, sessionToken, onChange)")
		}
		userID, onChange := args[0].String(), args[3]
		c := newClient(args[1].String(), args[2].String())

		h := handshake.New(userID, c, browserWindow{}, handshake.OnTransition(func(t handshake.Transition) {
			errText := js.Null()
			if t.Err != nil {
				errText = js.ValueOf(t.Err.Error())
			}
			onChange.Invoke(t.To.String(), errText)
		}))
		go func() {
			if err := h.Start(context.Background()); err != nil {
				onChange.Invoke(handshake.Error.String(), err.Error())
			}
		}()

		handle := js.Global().Get("Object").New()
		handle.Set("cancel", js.FuncOf(func(this js.Value, args []js.Value) any {
			go h.Cancel()
			return nil
		}))
		return handle
	}))

	// format: unlink(apiBase, sessionToken) -> Promise<void>
	api.Set("unlink", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) != 2 {
			return js.Global().Get("Error").New("unlink(apiBase, sessionToken)")
		}
		c := newClient(args[0].String(), args[1].String())
		return promise(func() (any, error) {
			return nil, c.Disconnect(context.Background())
		})
	}))

	// format: status(apiBase, sessionToken) -> Promise<{linked, lastLinkedAt}>
	api.Set("status", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) != 2 {
			return js.Global().Get("Error").New("status(apiBase, sessionToken)")
		}
		c := newClient(args[0].String(), args[1].String())
		return promise(func() (any, error) {
			st, err := c.Status(context.Background())
			if err != nil {
				return nil, err
			}
			obj := js.Global().Get("Object").New()
			obj.Set("linked", st.Linked)
			if st.LastLinkedAt != nil {
				obj.Set("lastLinkedAt", st.LastLinkedAt.Format(time.RFC3339))
			}
			return obj, nil
		})
	}))

	js.Global().Set("drivelink", api)
	fmt.Println("drivelink core initialized")

	// Prevent the function from returning, which would exit the Wasm module
	select {}
}

func newClient(apiBase, token string) *client.Client {
	return client.New(apiBase,
		client.WithTokenSource(func(context.Context) (string, error) { return token, nil }),
		// Send the session cookie on cross-origin API calls.
		client.WithHeader("js.fetch:credentials", "include"),
	)
}

// promise runs fn on a goroutine; blocking in a JS callback would deadlock the
// event loop.
func promise(fn func() (any, error)) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, args []js.Value) any {
		resolve, reject := args[0], args[1]
		go func() {
			defer executor.Release()
			v, err := fn()
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(v)
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

// browserWindow binds the handshake to the hosting page.
type browserWindow struct{}

func (browserWindow) Origin() string {
	return js.Global().Get("location").Get("origin").String()
}

func (browserWindow) OpenPopup(url string) (handshake.Popup, error) {
	w := js.Global().Call("open", url, "drivelink-auth", "width=500,height=650")
	if w.IsNull() || w.IsUndefined() {
		return nil, errors.New("window.open returned no window")
	}
	return popup{w}, nil
}

func (browserWindow) Listen(fn func(handshake.Message)) func() {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		ev := args[0]
		msg := handshake.Message{Origin: ev.Get("origin").String()}
		if data := ev.Get("data"); data.Type() == js.TypeObject {
			msg.Type = stringField(data, "type")
			msg.Code = stringField(data, "code")
			msg.State = stringField(data, "state")
			msg.Error = stringField(data, "error")
		}
		go fn(msg)
		return nil
	})
	js.Global().Call("addEventListener", "message", cb)
	return func() {
		js.Global().Call("removeEventListener", "message", cb)
		cb.Release()
	}
}

func (browserWindow) Every(d time.Duration, fn func()) func() {
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		go fn()
		return nil
	})
	id := js.Global().Call("setInterval", cb, d.Milliseconds())
	return func() {
		js.Global().Call("clearInterval", id)
		cb.Release()
	}
}

type popup struct{ w js.Value }

func (p popup) Closed() bool { return p.w.Get("closed").Bool() }
func (p popup) Close()       { p.w.Call("close") }

func stringField(v js.Value, key string) string {
	f := v.Get(key)
	if f.Type() != js.TypeString {
		return ""
	}
	return f.String()
}
