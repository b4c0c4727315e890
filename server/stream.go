package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/goliatone/go-greeter/view"
	"github.com/valyala/fasthttp"
)

// EventSession is the server-sent event name carrying a fragment
const EventSession = "session"

// Events streams the session fragment for this browser. The first event is
// the current session, after that one event per change published for the
// browser key. The stream ends when the client goes away or the server
// shuts down.
func (s *Server) Events(c *fiber.Ctx) error {
	key := browserKeyFrom(c)
	token := utils.CopyString(c.Cookies(s.cfg.GetContextKey()))
	b := s.binding(c)
	ctx := s.ctx

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	if c.Method() == fiber.MethodHead {
		return nil
	}

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// subscribe before resolving so no change in between is lost
		sub := s.hub.Subscribe(key)
		defer sub.Close()

		session, err := s.resolve(ctx, token, key)
		if err != nil {
			s.logger.Debug("session stream key=%s: %s", key, err)
		}

		err = s.renderer.Watch(ctx, sub.C(), b,
			func(_ view.Variant, html []byte) error {
				if err := writeEvent(w, EventSession, html); err != nil {
					return err
				}
				return w.Flush()
			},
			view.WithInitial(session),
			view.WithHeartbeat(s.heartbeat, func() error {
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return err
				}
				return w.Flush()
			}),
		)

		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Debug("session stream closed key=%s: %s", key, err)
		}
	}))

	return nil
}

// writeEvent frames data as a single server-sent event, one data line per
// line of payload
func writeEvent(w *bufio.Writer, event string, data []byte) error {
	if _, err := w.WriteString("event: " + event + "\n"); err != nil {
		return err
	}

	for _, line := range bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n")) {
		if _, err := w.WriteString("data: "); err != nil {
			return err
		}
		if _, err := w.Write(bytes.TrimRight(line, "\r")); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}

	return w.WriteByte('\n')
}
